package webdav

/*
	IN THIS FILE: run webdav server
		- open listener
		- start server
		- config TLS
*/

import (
	"crypto/tls"
	"log"
	"net"
	"net/http"
	"time"
)

// Serve accepts incoming HTTP (or HTTPS) connections on lAddr and serves
// the webdav handler (@see NewHandler).
//
// If the port in the address is empty or "0", as in "127.0.0.1:" or "[::1]:0",
// a port number is automatically chosen.
//
// With useTLS, files containing a certificate and matching private key
// for the server must be provided.
//
// Serve always returns a non-nil error.
func Serve(lAddr string, useTLS bool, certFile, certKeyFile string, handler http.Handler) error {

	// tcp listener
	listener, err := net.Listen("tcp", lAddr)
	if err != nil {
		log.Printf("ERROR: %s/Serve: listener: %v: lAddr='%s'", packageName, err, lAddr)
		return err
	}
	log.Printf("INFO: %s/Serve: Listening on %s", packageName, listener.Addr().String())

	// server hardening
	// https://blog.cloudflare.com/exposing-go-on-the-internet/
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		Handler:           handler,
	}

	if !useTLS {
		log.Printf("INFO: %s/Serve: start ...", packageName)
		err = srv.Serve(listener)
	} else {
		log.Printf("INFO: %s/Serve: start with TLS ...", packageName)
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12, // disable TLS 1.0 and TLS 1.1
		}
		err = srv.ServeTLS(listener, certFile, certKeyFile)
	}

	// Serve always returns a non-nil error.
	log.Printf("ERROR: %s/Serve: %v", packageName, err)
	return err
}
