package regs

// jep106Key identifies a JEDEC JEP106 manufacturer by its bank
// (continuation-code count) and 7-bit identity code.
type jep106Key struct {
	bank uint8
	id   uint8
}

// jep106Table is a small, deliberately incomplete lookup used only by
// the diagnostic ROM walk (§4.7 rom_display) to print a manufacturer
// name. It never feeds a decision in the core: AP/component matching
// uses the raw JEP106 code (ARMJEP106), not this table.
var jep106Table = map[jep106Key]string{
	{bank: 0, id: 0x3B}: "ARM Ltd",
	{bank: 0, id: 0x41}: "ARM Ltd (legacy)",
	{bank: 1, id: 0x00}: "AMD",
	{bank: 3, id: 0x45}: "Freescale (Motorola)",
	{bank: 0, id: 0x0E}: "Texas Instruments",
	{bank: 4, id: 0x3E}: "STMicroelectronics",
	{bank: 9, id: 0x22}: "Broadcom",
	{bank: 1, id: 0x3D}: "NXP Semiconductors",
}
