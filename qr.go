package main

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// qrHandler renders a QR code for the room URL, so the second player can
// be invited by pointing a phone at the first player's screen.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		path := strings.TrimSuffix(r.URL.Path, "/qr")
		if path == "" {
			path = "/"
		}

		url := scheme + "://" + r.Host + path

		png, err := qrcode.Encode(url, qrcode.Medium, 320)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		securityHeaders(cfg, w)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}
