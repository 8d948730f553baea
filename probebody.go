// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// probeChunkSize is the size of the buffer used to read the body.
const probeChunkSize = 4096

// probeAccumulate reads body incrementally into the session buffer.
//
// Reading stops at EOF, at the first error, or when the accumulated size
// would exceed maxSize, in which case [ErrProbeBodyTooLarge] is returned.
// The error returned when ctx is done is the context error.
func (s *ProbeSession) probeAccumulate(ctx context.Context, body io.Reader, maxSize int64) error {
	t0 := s.TimeNow()
	s.Logger.Info(
		"probeBodyStreamStart",
		slog.String("spanID", s.spanID()),
		slog.Time("t", t0),
	)

	err := s.probeReadAll(body, maxSize)
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	s.Logger.Info(
		"probeBodyStreamDone",
		slog.Int("bodySize", s.buffer.Len()),
		slog.Any("err", err),
		slog.String("errClass", s.ErrClassifier.Classify(err)),
		slog.String("spanID", s.spanID()),
		slog.Time("t0", t0),
		slog.Time("t", s.TimeNow()),
	)
	return err
}

func (s *ProbeSession) probeReadAll(body io.Reader, maxSize int64) error {
	chunk := make([]byte, probeChunkSize)
	for {
		count, err := body.Read(chunk)
		if count > 0 {
			if int64(s.buffer.Len()+count) > maxSize {
				return fmt.Errorf("%w: more than %d bytes", ErrProbeBodyTooLarge, maxSize)
			}
			s.buffer.Write(chunk[:count])
			s.Logger.Debug(
				"probeBodyChunk",
				slog.Int("ioBytesCount", count),
				slog.Int("bodySize", s.buffer.Len()),
				slog.String("spanID", s.spanID()),
			)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
