package regs

import "testing"

func TestCSWSizeAndIncrementFields(t *testing.T) {
	csw := CSWDbgSwEnable | CSWMasterDebug | CSWHProt1 | CSWAddrIncSingle | CSWSizeField(4)
	if CSWSizeFieldOf(csw) != CSWSize32 {
		t.Errorf("expected 32-bit size field, got %#x", CSWSizeFieldOf(csw))
	}
	if CSWAddrIncField(csw) != CSWAddrIncSingle {
		t.Errorf("expected single increment field, got %#x", CSWAddrIncField(csw))
	}
}

func TestCSWSizeFieldMapping(t *testing.T) {
	cases := map[int]uint32{1: CSWSize8, 2: CSWSize16, 4: CSWSize32}
	for size, want := range cases {
		if got := CSWSizeField(size); got != want {
			t.Errorf("CSWSizeField(%d) = %#x, want %#x", size, got, want)
		}
	}
}

func TestBuildSelect(t *testing.T) {
	got := BuildSelect(3, 0x14)
	want := uint32(3)<<SelectAPSelShift | uint32(1)<<SelectAPBankShift
	if got != want {
		t.Errorf("BuildSelect(3, 0x14) = %#x, want %#x", got, want)
	}
}

func TestIsARMMemAP(t *testing.T) {
	idr := uint32(ARMJEP106)<<IDRJEP106Shift | APTypeAHB<<IDRTypeShift
	if !IsARMMemAP(idr, APTypeAHB) {
		t.Errorf("expected IDR %#x to be recognized as ARM AHB-AP", idr)
	}
	if IsARMMemAP(idr, APTypeAXI) {
		t.Error("expected IDR not to match AXI-AP type")
	}
	if IsARMMemAP(0, APTypeAHB) {
		t.Error("zero IDR (non-existent AP) must not match")
	}
}

func TestCIDValidity(t *testing.T) {
	// Assembled from the canonical CoreSight CID byte values (CID1's
	// class nibble is masked out of the validity check).
	cid := CID(0x0D, 0x10, 0x05, 0xB1)
	if cid != 0xB105100D {
		t.Fatalf("CID assembly = %#x, want 0xB105100D", cid)
	}
	if !IsValidCID(cid) {
		t.Error("expected canonical CID to be valid")
	}
	if IsValidCID(0xDEADBEEF) {
		t.Error("expected garbage CID to be invalid")
	}
	if CIDClass(cid) != 1 {
		t.Errorf("expected ROM table class (1), got %d", CIDClass(cid))
	}
}

func TestIsNestedROMTable(t *testing.T) {
	if !IsNestedROMTable(0x10) {
		t.Error("CID1=0x10 (class=1) should be a nested ROM table")
	}
	if IsNestedROMTable(0x90) {
		t.Error("CID1=0x90 (class=9) should not be a nested ROM table")
	}
}

func TestPIDDecode(t *testing.T) {
	pid := PID(0xAA, 0x0B, 0x3B, 0x04, 0x01)
	if PIDPartNumber(pid) != 0xBAA {
		t.Errorf("PIDPartNumber = %#x, want 0xBAA", PIDPartNumber(pid))
	}
	if PIDSize4K(pid) != 0 {
		t.Errorf("PIDSize4K = %d, want 0", PIDSize4K(pid))
	}
}

func TestDecodeDesignerJEP106(t *testing.T) {
	code := PIDDesignerCode(PID(0, 0xB0, 0xBB, 0, 0))
	d := DecodeDesigner(code)
	if !d.IsJEP106 {
		t.Error("expected JEP106 designer code")
	}
}

func TestDecodeDesignerLegacyASCII(t *testing.T) {
	// bit 7 clear: legacy ASCII 'A' = 0x41, masked to 7 bits.
	d := DecodeDesigner(0x41)
	if d.IsJEP106 {
		t.Error("expected legacy ASCII designer code")
	}
	if d.Code != 0x41 {
		t.Errorf("expected code 0x41, got %#x", d.Code)
	}
}
