// Command testserver runs a local fake of the record-location function.
//
// Usage:
//
//	testserver [flags]
//
// Flags:
//
//	-port    Port to listen on (default: 8080)
//	-host    Host to bind to (default: localhost)
//	-secret  HS256 secret used to sign and verify tokens
//	-fail    Percent of function calls to fail with 500 (default: 0)
//	-delay   Delay added to every function call (default: 0)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"georeporter/testserver"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	host := flag.String("host", "localhost", "host to bind to")
	secret := flag.String("secret", "georeporter-dev-secret", "HS256 token secret")
	failRate := flag.Int("fail", 0, "percent of function calls that fail")
	delay := flag.Duration("delay", 0, "delay added to every function call")
	flag.Parse()

	server := testserver.NewServer(*secret)
	server.SetFailRate(*failRate)
	server.SetDelay(*delay)
	addr := fmt.Sprintf("%s:%d", *host, *port)

	fmt.Println("georeporter Test Server")
	fmt.Println("=======================")
	fmt.Printf("Listening on http://%s\n\n", addr)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health                        - Health check")
	fmt.Println("  POST /auth/v1/token?user={id}       - Issue a signed access token")
	fmt.Println("  POST /functions/v1/record-location  - Record {latitude, longitude}")
	fmt.Println()

	srv := &http.Server{Addr: addr, Handler: server.Handler(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	fmt.Printf("Accepted %d reports\n", len(server.Reports()))
}
