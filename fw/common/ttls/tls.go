package ttls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"sfidfw/fw/common"
	"strings"
)

// LoadTLSConfig cert/key 可以是文件路径或 PEM 内容。
// sniGuard 为逗号分隔的域名白名单（支持 *.example.com），为空则不校验 SNI；
// 启用时客户端 SNI 必须命中白名单且被证书覆盖。
func LoadTLSConfig(cert, key, sniGuard string) (*tls.Config, error) {
	cert, key = strings.TrimSpace(cert), strings.TrimSpace(key)
	if cert == "" || key == "" {
		return nil, errors.New("empty cert/key")
	}
	certPEM, err := common.ReadPEMorFile(cert)
	if err != nil {
		return nil, fmt.Errorf("read cert: %w", err)
	}
	keyPEM, err := common.ReadPEMorFile(key)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse keypair: %w", err)
	}
	if pair.Leaf == nil && len(pair.Certificate) > 0 {
		if leaf, e := x509.ParseCertificate(pair.Certificate[0]); e == nil {
			pair.Leaf = leaf
		}
	}

	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{pair},
	}
	if guard := common.SplitList(sniGuard); len(guard) > 0 {
		cfg.VerifyConnection = sniVerifier(guard, pair.Leaf)
	}
	return cfg, nil
}

func sniVerifier(guard []string, leaf *x509.Certificate) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		sni := strings.ToLower(strings.TrimSpace(cs.ServerName))
		if sni == "" {
			return errors.New("sni required")
		}
		if !common.MatchHost(sni, guard) {
			return fmt.Errorf("sni not allowed: %s", sni)
		}
		if leaf != nil {
			if err := leaf.VerifyHostname(sni); err != nil {
				return fmt.Errorf("sni not covered by certificate: %w", err)
			}
		}
		return nil
	}
}
