package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sfidfw/fw/common/config"
	"sfidfw/fw/common/ttls"
	"time"
)

// buildHTTPServer 有证书 -> HTTPS，否则 HTTP；证书加载失败降级为 HTTP 并告警
func buildHTTPServer(cfg config.ServerCfg, handler http.Handler) (*http.Server, bool) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if !cfg.TLS.Enabled() {
		return srv, false
	}
	tc, err := ttls.LoadTLSConfig(cfg.TLS.Cert, cfg.TLS.Key, cfg.TLS.SniGuard)
	if err != nil {
		bootLog.Warnf("tls disabled (load error): %v", err)
		return srv, false
	}
	srv.TLSConfig = tc
	return srv, true
}

// serve 阻塞直到 Shutdown；正常关闭返回 nil
func serve(srv *http.Server, useTLS bool) error {
	var err error
	if useTLS {
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// listenURLs 可访问地址提示：绑定地址、本机、首个局域网 IPv4
func listenURLs(bindAddr string, useTLS bool) []string {
	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	host, port, err := net.SplitHostPort(bindAddr)
	if err != nil {
		return []string{scheme + "://" + bindAddr}
	}
	var urls []string
	if host != "" && host != "0.0.0.0" && host != "::" {
		urls = append(urls, scheme+"://"+net.JoinHostPort(host, port))
		return urls
	}
	urls = append(urls, scheme+"://"+net.JoinHostPort("127.0.0.1", port))
	if ip := firstLANIPv4(); ip != "" {
		urls = append(urls, scheme+"://"+net.JoinHostPort(ip, port))
	}
	return urls
}

func firstLANIPv4() string {
	ifcs, _ := net.Interfaces()
	for _, itf := range ifcs {
		if itf.Flags&net.FlagUp == 0 || itf.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := itf.Addrs()
		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipn.IP.To4()
			if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}
			return ip.String()
		}
	}
	return ""
}
