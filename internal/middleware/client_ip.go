// Package middleware содержит HTTP middleware сервера перенаправлений:
// логирование, сжатие, определение адреса клиента и ограничение частоты запросов.
package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type clientIPKey struct{}

// ClientIP возвращает адрес клиента. Если запрос прошёл через TrustedProxyMiddleware,
// используется адрес, который она приняла; иначе - хост из RemoteAddr.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// forwardedIP читает адрес клиента из X-Real-IP, затем из первого элемента X-Forwarded-For
func forwardedIP(r *http.Request) net.IP {
	if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
		return net.ParseIP(v)
	}
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		first, _, _ := strings.Cut(v, ",")
		return net.ParseIP(strings.TrimSpace(first))
	}
	return nil
}

// TrustedProxyMiddleware принимает заголовки X-Real-IP и X-Forwarded-For только
// от прокси из доверенной подсети (CIDR). Пустая подсеть означает, что заголовкам
// не доверяют и адресом клиента считается RemoteAddr.
func TrustedProxyMiddleware(trustedSubnet string, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	var network *net.IPNet
	if trustedSubnet != "" {
		_, n, err := net.ParseCIDR(trustedSubnet)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted subnet %q: %w", trustedSubnet, err)
		}
		network = n
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := remoteHost(r)

			if network != nil {
				proxy := net.ParseIP(clientIP)
				if proxy != nil && network.Contains(proxy) {
					if ip := forwardedIP(r); ip != nil {
						clientIP = ip.String()
					} else if r.Header.Get("X-Real-IP") != "" {
						logger.Warn("Ignoring invalid X-Real-IP header",
							zap.String("uri", r.RequestURI),
							zap.String("remote_addr", r.RemoteAddr))
					}
				}
			}

			ctx := context.WithValue(r.Context(), clientIPKey{}, clientIP)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}
