/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
)

// ReadOperation is a running read-all operation.
type ReadOperation struct {
	service string
	cancel  context.CancelFunc
	arrived chan models.LinkStatus
	done    chan struct{}
	err     error

	// waiting is the attribute whose read is outstanding; guarded by the
	// owning Session's mutex.
	waiting string
}

// Done is closed when the operation finishes.
func (op *ReadOperation) Done() <-chan struct{} { return op.done }

// Err returns the outcome once Done is closed.
func (op *ReadOperation) Err() error {
	select {
	case <-op.done:
		return op.err
	default:
		return nil
	}
}

// Cancel stops the operation before its next attribute.
func (op *ReadOperation) Cancel() { op.cancel() }

// Wait blocks until the operation finishes or ctx is done.
func (op *ReadOperation) Wait(ctx context.Context) error {
	select {
	case <-op.done:
		return op.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadAllAttributes reads the attributes of serviceID one at a time, waiting
// for each response before issuing the next read. With no attrs every
// attribute of the service is read in discovery order. Only one operation may
// run per session. Progress is published as PROGRESS notifications: i*100/n
// after issuing the i-th read, then ProgressComplete, or ProgressNone when the
// operation is cancelled or exceeds the read timeout.
func (s *Session) ReadAllAttributes(ctx context.Context, serviceID string, attrs ...string) (*ReadOperation, error) {
	s.mu.Lock()
	if s.state != models.StateConnected || s.link == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}

	if s.readOp != nil {
		s.mu.Unlock()
		return nil, ErrReadAllInProgress
	}

	link := s.link
	opCtx, cancel := context.WithCancel(ctx)
	op := &ReadOperation{
		service: serviceID,
		cancel:  cancel,
		arrived: make(chan models.LinkStatus, 1),
		done:    make(chan struct{}),
	}
	s.readOp = op
	s.mu.Unlock()

	order, err := attributeOrder(link.Services(), serviceID, attrs)
	if err != nil {
		s.mu.Lock()
		s.readOp = nil
		s.mu.Unlock()
		cancel()

		return nil, err
	}

	go s.runReadAll(opCtx, op, link, order)

	return op, nil
}

func attributeOrder(services []models.Service, serviceID string, attrs []string) ([]string, error) {
	idx := slices.IndexFunc(services, func(svc models.Service) bool { return svc.ID == serviceID })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
	}

	available := services[idx].Attributes
	if len(attrs) == 0 {
		return slices.Clone(available), nil
	}

	for _, a := range attrs {
		if !slices.Contains(available, a) {
			return nil, fmt.Errorf("%w: %s/%s", ErrAttributeNotFound, serviceID, a)
		}
	}

	return slices.Clone(attrs), nil
}

func (s *Session) runReadAll(ctx context.Context, op *ReadOperation, link Link, attrs []string) {
	start := s.now()
	err := s.readSequentially(ctx, op, link, attrs, start)

	s.mu.Lock()
	if s.readOp == op {
		s.readOp = nil
	}
	op.waiting = ""
	s.mu.Unlock()

	op.cancel()

	if err == nil {
		s.setProgress(models.ProgressComplete)
	} else {
		s.setProgress(models.ProgressNone)

		if !errors.Is(err, ErrReadAllCancelled) {
			s.logger.Warn().Err(err).Str("service", op.service).Msg("Read-all failed")
			s.notify(models.EventError, err.Error(), nil)
		}
	}

	op.err = err
	close(op.done)
}

func (s *Session) readSequentially(ctx context.Context, op *ReadOperation, link Link, attrs []string, start time.Time) error {
	total := len(attrs)

	for i, attr := range attrs {
		if ctx.Err() != nil {
			return ErrReadAllCancelled
		}

		s.mu.Lock()
		op.waiting = attr
		s.mu.Unlock()

		if err := link.ReadAttribute(attr); err != nil {
			return fmt.Errorf("read %s: %w", attr, err)
		}

		s.setProgress(i * 100 / total)

		if err := s.awaitRead(ctx, op, start); err != nil {
			return err
		}
	}

	return nil
}

// awaitRead waits for the outstanding read, waking every timeout to check
// the overall deadline.
func (s *Session) awaitRead(ctx context.Context, op *ReadOperation, start time.Time) error {
	ticker := time.NewTicker(s.timeout)
	defer ticker.Stop()

	for {
		select {
		case <-op.arrived:
			return nil
		case <-ctx.Done():
			return ErrReadAllCancelled
		case <-ticker.C:
			if elapsed := s.now().Sub(start); elapsed > s.timeout {
				return fmt.Errorf("%w after %s", ErrReadAllTimeout, elapsed.Round(time.Millisecond))
			}
		}
	}
}

func (s *Session) setProgress(p int) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()

	s.notify(models.EventProgress, "", &p)
}
