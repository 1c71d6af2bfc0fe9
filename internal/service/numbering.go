package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spotdesk/spot-service/internal/repository"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// NumberGenerator produces ticket numbers of the form
// {prefix}_{YYYYMMDD}_{serial}, where serial is a zero-padded three digit
// counter that resets daily per prefix.
type NumberGenerator struct {
	mappings repository.MappingRepository
}

// NewNumberGenerator constructs the generator.
func NewNumberGenerator(mappings repository.MappingRepository) *NumberGenerator {
	return &NumberGenerator{mappings: mappings}
}

// Prefix resolves the configured number prefix for the sub-department.
func (g *NumberGenerator) Prefix(ctx context.Context, subDept string) (string, error) {
	prefix, err := g.mappings.PrefixForSubDept(ctx, subDept)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return "", apperrors.NewUnknownSubDeptPrefix(subDept)
	}
	return prefix, nil
}

// Generate produces the next ticket number for the prefix on the given day.
// The caller must hold the advisory lock for the prefix+date key and run the
// subsequent insert in the same transaction, otherwise concurrent creations
// can race on the read-max-then-insert sequence.
func (g *NumberGenerator) Generate(ctx context.Context, tickets repository.TicketRepository, prefix string, creation time.Time) (string, error) {
	day := creation.Format("20060102")
	if err := tickets.AcquireNumberLock(ctx, prefix+"_"+day); err != nil {
		return "", err
	}
	last, err := tickets.LastNumberForDay(ctx, prefix, day)
	if err != nil {
		return "", err
	}
	serial, err := nextSerial(last)
	if err != nil {
		return "", err
	}
	return formatTicketNumber(prefix, day, serial), nil
}

// nextSerial parses the serial portion of the highest existing number for
// the day and increments it. An empty last number starts the day at 1.
func nextSerial(last string) (int, error) {
	if last == "" {
		return 1, nil
	}
	idx := strings.LastIndex(last, "_")
	if idx < 0 || idx == len(last)-1 {
		return 0, fmt.Errorf("malformed ticket number %q", last)
	}
	serial, err := strconv.Atoi(last[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed ticket number %q: %w", last, err)
	}
	return serial + 1, nil
}

func formatTicketNumber(prefix, day string, serial int) string {
	return fmt.Sprintf("%s_%s_%03d", prefix, day, serial)
}
