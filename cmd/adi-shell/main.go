// Command adi-shell is a small interactive-ish diagnostic front end
// for the ADIv5 core, grounded on the teacher's cmd/ublk-mem: stdlib
// flag parsing, the package's own leveled logger, and plain
// fmt.Printf for the output a human actually wants to read.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	adiv5 "github.com/armdbg/go-adiv5"
	"github.com/armdbg/go-adiv5/internal/logging"
	"github.com/armdbg/go-adiv5/internal/regs"
	"github.com/armdbg/go-adiv5/internal/transport/loopback"
)

func main() {
	var (
		verbose  = flag.Bool("v", false, "Verbose output")
		tiQuirks = flag.Bool("ti-be32", false, "Assume TI BE-32 addressing quirks")
		latency  = flag.Duration("latency", 200*time.Microsecond, "Simulated per-flush round-trip latency against the loopback transport")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	t := loopback.New()
	t.FlushLatency = *latency
	t.Attach(0, (regs.ARMJEP106<<17)|(regs.IDRClassMemAP<<13)|regs.APTypeAHB, 0xE0000000, 0, make([]byte, 1<<20))

	opts := []adiv5.Option{adiv5.WithLogger(logger)}
	if *tiQuirks {
		opts = append(opts, adiv5.WithTIBE32Quirks(true))
	}
	d := adiv5.NewDAP(t, opts...)

	if err := d.DPInit(); err != nil {
		logger.Error("dp_init failed", "error", err)
		os.Exit(1)
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "info":
		err = runInfo(d, rest)
	case "apsel":
		err = runAPSel(d, rest)
	case "apid":
		err = runAPID(d, rest)
	case "apcsw":
		err = runAPCSW(d, rest)
	case "baseaddr":
		err = runBaseAddr(d, rest)
	case "memaccess":
		err = runMemAccess(d, rest)
	case "ti_be_32_quirks":
		err = runTIQuirks(d, rest)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `adi-shell <command> [args]

Flags:
  -v                       Verbose (debug-level) logging
  -ti-be32                 Assume TI BE-32 addressing quirks
  -latency duration        Simulated per-flush round-trip latency (default 200us)

Commands:
  info [ap]               print the given AP's IDR and BASE and whether it is an ARM AHB-AP (default ap=0)
  apsel [ap]               select the current AP (default ap=0)
  apid [ap]                print the selected AP's IDR
  apcsw [0|1]               print, or set, the AP's CSW_SPROT default bit
  baseaddr [ap]             print the selected AP's debug base address
  memaccess [cycles]        print, or set, the AP's MEM-AP access wait cycles
  ti_be_32_quirks           print whether TI BE-32 quirks are assumed (set only via -ti-be32)
`)
}

func parseAPArg(args []string, def uint8) (uint8, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n >= 256 {
		return 0, adiv5.NewError("parse_ap_arg", adiv5.KindCommandSyntax, "ap index must be 0..255")
	}
	return uint8(n), nil
}

func runInfo(d *adiv5.DAP, args []string) error {
	apIdx, err := parseAPArg(args, d.CurrentAP())
	if err != nil {
		return err
	}
	ap := d.AP(apIdx)
	base, idr, err := ap.GetDebugBase()
	if err != nil {
		return err
	}
	fmt.Printf("ap=%d idr=0x%08X base=0x%08X is_mem_ap=%v\n", apIdx, idr, base, regs.IsARMMemAP(idr, regs.APTypeAHB))
	return nil
}

func runAPSel(d *adiv5.DAP, args []string) error {
	apIdx, err := parseAPArg(args, 0)
	if err != nil {
		return err
	}
	d.SetCurrentAP(apIdx)
	fmt.Printf("current ap = %d\n", apIdx)
	return nil
}

func runAPID(d *adiv5.DAP, args []string) error {
	apIdx, err := parseAPArg(args, d.CurrentAP())
	if err != nil {
		return err
	}
	ap := d.AP(apIdx)
	_, idr, err := ap.GetDebugBase()
	if err != nil {
		return err
	}
	fmt.Printf("ap=%d idr=0x%08X\n", apIdx, idr)
	return nil
}

func runAPCSW(d *adiv5.DAP, args []string) error {
	ap := d.AP(d.CurrentAP())
	if len(args) == 0 {
		fmt.Printf("csw_default sprot = %v\n", ap.CSWDefault()&regs.CSWSProt != 0)
		return nil
	}
	bit, err := strconv.Atoi(args[0])
	if err != nil || (bit != 0 && bit != 1) {
		return adiv5.NewError("apcsw", adiv5.KindCommandSyntax, "argument must be 0 or 1")
	}
	if bit == 1 {
		ap.SetCSWDefault(ap.CSWDefault() | regs.CSWSProt)
	} else {
		ap.SetCSWDefault(ap.CSWDefault() &^ regs.CSWSProt)
	}
	fmt.Printf("csw_default sprot = %v\n", bit == 1)
	return nil
}

func runBaseAddr(d *adiv5.DAP, args []string) error {
	apIdx, err := parseAPArg(args, d.CurrentAP())
	if err != nil {
		return err
	}
	base, _, err := d.AP(apIdx).GetDebugBase()
	if err != nil {
		return err
	}
	fmt.Printf("ap=%d base=0x%08X\n", apIdx, base)
	return nil
}

func runMemAccess(d *adiv5.DAP, args []string) error {
	ap := d.AP(d.CurrentAP())
	if len(args) == 0 {
		fmt.Printf("mem_access_tck = %d\n", ap.MemAccessTCK())
		return nil
	}
	cycles, err := strconv.Atoi(args[0])
	if err != nil || cycles < 0 || cycles > 255 {
		return adiv5.NewError("memaccess", adiv5.KindCommandSyntax, "cycles must be 0..255")
	}
	ap.SetMemAccessTCK(uint8(cycles))
	fmt.Printf("mem_access_tck = %d\n", cycles)
	return nil
}

func runTIQuirks(d *adiv5.DAP, args []string) error {
	if len(args) == 0 {
		fmt.Printf("ti_be_32_quirks = %v\n", d.AP(d.CurrentAP()).UnalignedAccessBad())
		return nil
	}
	return adiv5.NewError("ti_be_32_quirks", adiv5.KindCommandSyntax, "quirk mode is fixed at startup via -ti-be32")
}
