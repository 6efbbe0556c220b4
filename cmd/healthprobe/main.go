// Command healthprobe is a tiny standalone liveness endpoint used by
// deployment probes and load tests. The handler is written once against
// the httpx adapter layer and can serve over fasthttp (default) or
// net/http.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"

	"arenachat/pkg/httpx"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	ver := flag.String("version", "dev", "version string to return")
	useNetHTTP := flag.Bool("nethttp", false, "serve over net/http instead of fasthttp")
	flag.Parse()

	h := func(w httpx.ResponseWriter, r *httpx.Request) {
		switch r.Path {
		case "/health", "/healthz":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			// keep the handler extremely lean to measure router+net overhead
			fmt.Fprintf(w, "{\"status\":\"ok\",\"version\":\"%s\"}", *ver)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}

	if *useNetHTTP {
		fmt.Printf("healthprobe (net/http) listening on %s\n", *addr)
		if err := http.ListenAndServe(*addr, httpx.NetHTTPAdapter(h)); err != nil {
			fmt.Printf("net/http server exit: %v\n", err)
		}
		return
	}

	fmt.Printf("healthprobe (fasthttp) listening on %s\n", *addr)
	srv := &fasthttp.Server{
		Handler:            httpx.FastHTTPAdapter(h),
		Name:               "arenachat-healthprobe",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Printf("fasthttp server exit: %v\n", err)
	}
}
