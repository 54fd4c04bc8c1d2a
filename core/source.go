package core

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/axiomesh/upgrader/repo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoCodeSource  = errors.New("neither code path nor download urls configured")
	ErrHashMismatch  = errors.New("runtime code hash check failed")
	defaultAttempts  = uint(5)
	defaultBackoff   = 5 * time.Second
	maxRuntimeLength = int64(64 << 20)
)

// LoadRuntimeCode reads the upgrade payload from the configured path, or
// downloads it from one of the configured urls.
func LoadRuntimeCode(cfg *repo.Upgrade, logger logrus.FieldLogger) ([]byte, error) {
	if cfg.CodePath != "" {
		code, err := os.ReadFile(cfg.CodePath)
		if err != nil {
			return nil, errors.Wrap(err, "read runtime code")
		}
		if err := checkHash(code, cfg.CheckHash); err != nil {
			return nil, err
		}
		logger.Infof("loaded runtime code from %s, %d bytes", cfg.CodePath, len(code))
		return code, nil
	}

	if len(cfg.DownloadUrls) == 0 {
		return nil, ErrNoCodeSource
	}
	return download(cfg, logger)
}

func download(cfg *repo.Upgrade, logger logrus.FieldLogger) ([]byte, error) {
	maxInt := big.NewInt(int64(len(cfg.DownloadUrls)))

	attempts := cfg.Download.Attempts
	if attempts == 0 {
		attempts = defaultAttempts
	}
	wait := cfg.Download.Backoff
	if wait == 0 {
		wait = defaultBackoff
	}

	var code []byte
	action := func(attempt uint) error {
		index, err := rand.Int(rand.Reader, maxInt)
		if err != nil {
			return err
		}
		url := cfg.DownloadUrls[index.Uint64()]
		logger.Debugf("download runtime code from %s, attempt %d", url, attempt+1)

		resp, err := http.Get(url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("get download url error, status code: %v", resp.StatusCode)
		}

		code, err = io.ReadAll(io.LimitReader(resp.Body, maxRuntimeLength))
		return err
	}

	if err := retry.Retry(action, strategy.Limit(attempts), strategy.Backoff(backoff.Fibonacci(wait))); err != nil {
		return nil, errors.Wrap(err, "download runtime code")
	}

	if err := checkHash(code, cfg.CheckHash); err != nil {
		return nil, err
	}
	logger.Infof("download runtime code hash check passed, %d bytes", len(code))
	return code, nil
}

// checkHash compares the hex sha256 of code against want; an empty want skips the check.
func checkHash(code []byte, want string) error {
	if want == "" {
		return nil
	}
	sum := fmt.Sprintf("%x", sha256.Sum256(code))
	if sum != want {
		return errors.Wrapf(ErrHashMismatch, "source file hash: %s, target file hash: %s", want, sum)
	}
	return nil
}
