package transport

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/axians/clientlog/internal/clock"
)

// DefaultMaxFiles is the number of spooled reports kept when MaxFiles is
// not set.
const DefaultMaxFiles = 50

const spoolExt = ".clog"

// ErrSpooled is returned by Spool.Send when the report could not be
// delivered and was written to the spool instead.
var ErrSpooled = errors.New("transport: report spooled")

// record is one spooled report.
type record struct {
	Machine string    `cbor:"1,keyasint"`
	Created time.Time `cbor:"2,keyasint"`
	Report  []byte    `cbor:"3,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transport: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("transport: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("transport: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("transport: zstd decoder initialization failed: " + err.Error())
	}
}

// Spool wraps a Sender. Reports that fail to send are stored in Dir and
// replayed, oldest first, after the next successful send.
//
// Spool files hold a CBOR record compressed with zstd and are named after
// the creation time and the BLAKE3 hash of their contents, so a damaged
// file is detected and dropped on replay.
type Spool struct {
	Next     Sender
	Dir      string
	MaxFiles int
	Clock    clock.Clock
	Logger   *slog.Logger
}

func (s *Spool) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Spool) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Spool) Send(ctx context.Context, machine string, report []byte) error {
	if err := s.Next.Send(ctx, machine, report); err != nil {
		if ctx.Err() != nil {
			return err
		}
		name, serr := s.store(record{Machine: machine, Created: s.now().UTC(), Report: report})
		if serr != nil {
			return errors.Join(err, fmt.Errorf("spool report: %w", serr))
		}
		s.logger().Warn("report spooled", "machine", machine, "file", name, "error", err)
		return fmt.Errorf("%w: %w", ErrSpooled, err)
	}
	s.Replay(ctx)
	return nil
}

// Pending returns the spool file names, oldest first.
func (s *Spool) Pending() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), spoolExt) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Replay sends spooled reports oldest first, deleting each one that was
// delivered. It stops at the first failure and returns the number sent.
func (s *Spool) Replay(ctx context.Context) int {
	names, err := s.Pending()
	if err != nil {
		s.logger().Warn("spool unreadable", "dir", s.Dir, "error", err)
		return 0
	}
	sent := 0
	for _, name := range names {
		path := filepath.Join(s.Dir, name)
		rec, err := s.load(path)
		if err != nil {
			s.logger().Warn("dropping damaged spool file", "file", name, "error", err)
			_ = os.Remove(path)
			continue
		}
		if err := s.Next.Send(ctx, rec.Machine, rec.Report); err != nil {
			s.logger().Warn("spool replay stopped", "file", name, "remaining", len(names)-sent, "error", err)
			return sent
		}
		if err := os.Remove(path); err != nil {
			s.logger().Warn("spool file not removed", "file", name, "error", err)
		}
		sent++
	}
	if sent > 0 {
		s.logger().Info("spooled reports delivered", "count", sent)
	}
	return sent
}

func (s *Spool) store(rec record) (string, error) {
	data, err := encMode.Marshal(rec)
	if err != nil {
		return "", err
	}
	data = zstdEncoder.EncodeAll(data, nil)
	sum := blake3.Sum256(data)
	name := fmt.Sprintf("%016x-%s%s", rec.Created.UnixNano(), hex.EncodeToString(sum[:8]), spoolExt)

	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(s.Dir, ".spool-*")
	if err != nil {
		return "", err
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	s.trim()
	return name, nil
}

// trim removes the oldest files beyond MaxFiles.
func (s *Spool) trim() {
	limit := s.MaxFiles
	if limit <= 0 {
		limit = DefaultMaxFiles
	}
	names, err := s.Pending()
	if err != nil || len(names) <= limit {
		return
	}
	for _, name := range names[:len(names)-limit] {
		if err := os.Remove(filepath.Join(s.Dir, name)); err == nil {
			s.logger().Warn("spool full, dropped oldest report", "file", name)
		}
	}
}

func (s *Spool) load(path string) (record, error) {
	var rec record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	base := strings.TrimSuffix(filepath.Base(path), spoolExt)
	_, want, ok := strings.Cut(base, "-")
	sum := blake3.Sum256(data)
	if !ok || want != hex.EncodeToString(sum[:8]) {
		return rec, errors.New("checksum mismatch")
	}
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return rec, fmt.Errorf("zstd decompress: %w", err)
	}
	if err := decMode.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
