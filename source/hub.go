package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-getter"

	"github.com/teranos/foundry/config"
	"github.com/teranos/foundry/errors"
)

// fetchHub downloads a hub snapshot into the hub cache and returns the
// local path. Fetches are keyed by URI digest, so a snapshot already in
// the cache is reused without touching the network.
func fetchHub(ctx context.Context, ref config.SourceRef, opts Options) (string, error) {
	if ref.Streaming {
		return "", errors.Newf("hub source %s declares streaming delivery, which cannot be materialized", ref.URI)
	}
	if opts.HubCacheDir == "" {
		return "", errors.New("hub sources require a hub cache directory")
	}

	dest := filepath.Join(opts.HubCacheDir, hubCacheKey(ref.URI))
	if _, err := os.Lstat(dest); err == nil {
		if opts.Logger != nil {
			opts.Logger.Debugw("hub snapshot cached", "uri", ref.URI, "path", dest)
		}
		return dest, nil
	}

	if err := os.MkdirAll(opts.HubCacheDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create hub cache directory")
	}

	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}
	detected, err := getter.Detect(ref.URI, pwd, getter.Detectors)
	if err != nil {
		return "", errors.Wrapf(err, "detect hub source %s", ref.URI)
	}
	if ref.Token != "" {
		detected, err = withToken(detected, ref.Token)
		if err != nil {
			return "", err
		}
	}

	if opts.HubTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.HubTimeout)
		defer cancel()
	}

	// Fetch into a staging path and rename, so a killed fetch never
	// leaves a half-written snapshot that later runs would trust.
	staging := dest + ".partial"
	os.RemoveAll(staging)

	client := &getter.Client{
		Ctx:     ctx,
		Src:     detected,
		Dst:     staging,
		Mode:    getter.ClientModeAny,
		Getters: getter.Getters,
	}

	if opts.Logger != nil {
		opts.Logger.Infow("fetching hub snapshot", "uri", ref.URI, "path", dest)
	}
	if err := client.Get(); err != nil {
		os.RemoveAll(staging)
		return "", errors.Wrapf(err, "fetch hub source %s", ref.URI)
	}
	if err := os.Rename(staging, dest); err != nil {
		os.RemoveAll(staging)
		return "", errors.Wrap(err, "commit hub snapshot")
	}
	return dest, nil
}

// hubCacheKey derives a stable directory name for a hub URI.
func hubCacheKey(uri string) string {
	sum := sha256.Sum256([]byte(uri))
	return hex.EncodeToString(sum[:8])
}

// withToken attaches an access token to the detected URL as a query
// credential.
func withToken(detected, token string) (string, error) {
	u, err := url.Parse(detected)
	if err != nil {
		return "", errors.Wrap(err, "parse hub source URL")
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
