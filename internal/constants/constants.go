// Package constants holds the default timing, retry, and sizing values
// used across the ADIv5 core. Centralizing them here mirrors how the
// rest of the module names its tunables instead of scattering magic
// numbers through the transaction engine and block engine.
package constants

import "time"

// Power-up handshake timing (§4.6).
const (
	// DPInitMaxAttempts bounds dap_dp_init's retry loop. The target may
	// need several attempts to come out of reset cleanly; 10 matches
	// the budget the spec mandates before surfacing failure.
	DPInitMaxAttempts = 10

	// PowerUpPollTimeout is the deadline for each CDBGPWRUPACK /
	// CSYSPWRUPACK poll during the power-up handshake.
	PowerUpPollTimeout = 10 * time.Millisecond

	// PowerUpPollInterval is how often poll_dp_register rereads the
	// target while waiting for an ack bit.
	PowerUpPollInterval = 100 * time.Microsecond
)

// MEM-AP defaults (§3 AP record).
const (
	// DefaultTARAutoincrBlock is the byte window within which TAR
	// auto-increment is guaranteed without a host rewrite, absent
	// better information about the target.
	DefaultTARAutoincrBlock = 1 << 10

	// DefaultMemAccessTCK is the "unknown" sentinel for memaccess_tck;
	// it is opaque to the core and only carried for a JTAG transport's
	// benefit.
	DefaultMemAccessTCK = 255
)

// ROM-table walk bounds (§4.7).
const (
	// MaxROMWalkDepth caps lookup_cs_component/rom_display recursion
	// through nested ROM tables.
	MaxROMWalkDepth = 16

	// ROMTableEntryLimit is the offset at which a ROM table is
	// considered exhausted even if no terminating zero entry was seen.
	ROMTableEntryLimit = 0xF00
)
