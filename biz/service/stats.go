package service

import (
	"strings"

	"harbormon/collector-service/biz/domain"
	"harbormon/collector-service/pkg/units"
)

// Token layout of one runtime stats line:
//
//	<id> <cpu%> <memUsed> / <memLimit> <mem%> <netIn> / <netOut> <blkRead> / <blkWrite>
//
// Block I/O trails the line; runtimes without a blkio controller omit it,
// so everything through netOut (9 tokens) is the minimum for a usable sample.
const minStatsTokens = 9

// ParseStatsLine turns one stats line into a sample. A line with fewer than
// the minimum token count is rejected whole: a partially filled sample would
// be indistinguishable from a real measurement.
func ParseStatsLine(line string) (*domain.StatsSample, bool) {
	fields := strings.Fields(line)
	if len(fields) < minStatsTokens {
		return nil, false
	}

	s := &domain.StatsSample{
		RuntimeID:   fields[0],
		CPUUsagePct: units.ParsePercent(fields[1]),
		MemUsagePct: units.ParsePercent(fields[5]),
		NetInBytes:  units.ParseSize(fields[6]),
		NetOutBytes: units.ParseSize(fields[8]),
	}

	// A limit that does not parse means "no cap reported", not a zero-byte
	// cap, so it stays nil.
	if v, ok := units.TryParseSize(fields[4]); ok {
		s.MemLimitBytes = &v
	}

	if len(fields) >= 12 {
		if v, ok := units.TryParseSize(fields[9]); ok {
			s.BlockReadBytes = &v
		}
		if v, ok := units.TryParseSize(fields[11]); ok {
			s.BlockWriteBytes = &v
		}
	}
	return s, true
}
