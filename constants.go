package adiv5

import (
	"github.com/armdbg/go-adiv5/internal/constants"
	"github.com/armdbg/go-adiv5/internal/regs"
)

// Re-exported timing and sizing defaults for the public API.
const (
	DPInitMaxAttempts      = constants.DPInitMaxAttempts
	PowerUpPollTimeout     = constants.PowerUpPollTimeout
	PowerUpPollInterval    = constants.PowerUpPollInterval
	DefaultTARAutoincrBlock = constants.DefaultTARAutoincrBlock
	DefaultMemAccessTCK    = constants.DefaultMemAccessTCK
	MaxROMWalkDepth        = constants.MaxROMWalkDepth
	ROMTableEntryLimit     = constants.ROMTableEntryLimit
)

// Re-exported MEM-AP register selectors and CSW/CTRL-STAT bit layout.
const (
	RegCSW  = regs.CSW
	RegTAR  = regs.TAR
	RegDRW  = regs.DRW
	RegCFG  = regs.CFG
	RegBASE = regs.BASE
	RegIDR  = regs.IDR

	CSWSize8       = regs.CSWSize8
	CSWSize16      = regs.CSWSize16
	CSWSize32      = regs.CSWSize32
	CSWAddrIncOff    = regs.CSWAddrIncOff
	CSWAddrIncSingle = regs.CSWAddrIncSingle
	CSWAddrIncPacked = regs.CSWAddrIncPacked
)
