package core

import (
	"context"
	"errors"
	"testing"
)

func TestPayloadFrom(t *testing.T) {
	p := PayloadFrom(Sample{Lat: 1, Lng: 2, Accuracy: 15})
	if p.Latitude != 1 || p.Longitude != 2 {
		t.Errorf("expected {1 2}, got %+v", p)
	}
}

func TestIdentity_Same(t *testing.T) {
	a := &Identity{UserID: "u1", AccessToken: "t1"}
	tests := []struct {
		name string
		x, y *Identity
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil and present", nil, a, false},
		{"present and nil", a, nil, false},
		{"same values", a, &Identity{UserID: "u1", AccessToken: "t1"}, true},
		{"token refreshed", a, &Identity{UserID: "u1", AccessToken: "t2"}, false},
		{"different user", a, &Identity{UserID: "u2", AccessToken: "t1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.x.Same(tt.y); got != tt.want {
				t.Errorf("Same() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransportFunc(t *testing.T) {
	want := errors.New("boom")
	var got Payload
	tr := TransportFunc(func(ctx context.Context, p Payload) error {
		got = p
		return want
	})

	err := tr.Report(context.Background(), Payload{Latitude: 3, Longitude: 4})
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
	if got.Latitude != 3 || got.Longitude != 4 {
		t.Errorf("payload not forwarded, got %+v", got)
	}
}

func TestNullRecorder(t *testing.T) {
	// should not panic
	NullRecorder.Record(Event{Step: StepReport, Success: true})
}
