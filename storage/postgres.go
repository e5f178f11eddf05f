package storage

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
)

// Connect opens a Store on a PostgreSQL database described by uri.
//
// TLS follows the sslmode of the uri. Certificates are verified against the
// host name unless opts.InsecureSkipVerify is set, in which case any
// certificate the server presents is accepted.
func Connect(ctx context.Context, uri string, opts Options) (*Store, error) {
	connConfig, err := pgx.ParseConfig(uri)
	if err != nil {
		return nil, validationError("connect", "parse database uri: %w", err)
	}

	applyTLSPolicy(connConfig, opts.InsecureSkipVerify)

	logger := opts.logger()
	logger.Info("connecting to database",
		zap.String("host", connConfig.Host),
		zap.Uint16("port", connConfig.Port),
		zap.String("tls", tlsMode(connConfig.TLSConfig, opts.InsecureSkipVerify)),
	)

	sqlDB := stdlib.OpenDB(*connConfig)

	store, err := Open(postgres.New(postgres.Config{Conn: sqlDB}), opts)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = store.Close()
		return nil, &Error{Op: "connect", Kind: KindConnectivity, Err: err}
	}

	return store, nil
}

// applyTLSPolicy rewrites the TLS settings pgx derived from sslmode. pgx skips
// verification for sslmode=prefer and sslmode=require; verification is turned
// back on unless insecure is true. Plaintext and verify-ca configs are left
// alone unless insecure is true.
func applyTLSPolicy(config *pgx.ConnConfig, insecure bool) {
	configure := func(tlsConfig *tls.Config, host string) {
		if tlsConfig == nil {
			return
		}
		if insecure {
			tlsConfig.InsecureSkipVerify = true
			tlsConfig.VerifyPeerCertificate = nil
			return
		}
		// sslmode=verify-ca checks the chain in VerifyPeerCertificate and
		// deliberately skips the host name.
		if tlsConfig.VerifyPeerCertificate != nil {
			return
		}
		tlsConfig.InsecureSkipVerify = false
		if tlsConfig.ServerName == "" {
			tlsConfig.ServerName = host
		}
	}

	configure(config.TLSConfig, config.Host)
	for _, fallback := range config.Fallbacks {
		configure(fallback.TLSConfig, fallback.Host)
	}
}

func tlsMode(tlsConfig *tls.Config, insecure bool) string {
	switch {
	case tlsConfig == nil:
		return "disabled"
	case insecure:
		return "unverified"
	}
	return fmt.Sprintf("verify %s", tlsConfig.ServerName)
}
