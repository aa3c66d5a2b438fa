package chipset

// hi/lo/setHi/setLo split and patch the 8-bit halves of a 16-bit register
// pair (AX -> AH/AL and so on), the byte-level access spec.md's BIOS call
// conventions (disk, and later mouse/UART status) are specified in terms of.

func hi(w uint16) uint8 { return uint8(w >> 8) }
func lo(w uint16) uint8 { return uint8(w) }

func setHi(w *uint16, v uint8) { *w = (*w & 0x00FF) | uint16(v)<<8 }
func setLo(w *uint16, v uint8) { *w = (*w & 0xFF00) | uint16(v) }
