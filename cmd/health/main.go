package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// Readiness sidecar: forwards health probes to the main server's /readyz so
// orchestrators polling this port see real store readiness, not just a live
// process. /health stays a local liveness answer for the sidecar itself.
func main() {
	addr := flag.String("addr", ":8081", "listen address for the health probe")
	target := flag.String("target", "http://127.0.0.1:8080", "base URL of the chatrelay server to probe")
	timeout := flag.Duration("timeout", 2*time.Second, "per-probe timeout")
	flag.Parse()

	client := &fasthttp.Client{
		ReadTimeout:  *timeout,
		WriteTimeout: *timeout,
	}
	readyURL := *target + "/readyz"

	h := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/health":
			ctx.Response.Header.Set("Content-Type", "application/json")
			ctx.SetStatusCode(fasthttp.StatusOK)
			_, _ = ctx.WriteString(`{"status":"ok"}`)
		case "/healthz", "/readyz":
			code, body, err := client.GetTimeout(nil, readyURL, *timeout)
			ctx.Response.Header.Set("Content-Type", "application/json")
			if err != nil {
				ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
				_, _ = ctx.WriteString(fmt.Sprintf("{\"status\":\"unreachable\",\"error\":%q}", err.Error()))
				return
			}
			ctx.SetStatusCode(code)
			_, _ = ctx.Write(body)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}

	fmt.Printf("health probe listening on %s, probing %s\n", *addr, readyURL)
	srv := &fasthttp.Server{
		Handler:            h,
		Name:               "chatrelay-health",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Printf("health server exit: %v\n", err)
	}
}
