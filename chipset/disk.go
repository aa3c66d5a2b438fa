package chipset

import (
	"io"
	"log"
	"os"

	"golang.org/x/sys/unix"

	"vxtcore/system"
)

const (
	sectorSize = 512
	diskWait   = 1000 // cycles stalled on every 0xB0/0xB1 access
)

type drive struct {
	file io.ReadWriteSeeker
	size int64
	isHD bool

	cylinders, sectors, heads uint16

	ah uint8 // status latched after the last 0xB1 operation
	cf bool
}

// Disk is the non-standard BIOS int 0x13 trap of spec.md §4.8: ports 0xB0
// (bootstrap trigger) and 0xB1 (function dispatch keyed by AH, drive keyed
// by DL), up to 256 drives addressed by DOS drive number. It walks its
// backing files directly rather than decoding IDE/floppy-controller wire
// protocol, matching the original's "injected file interface" design.
type Disk struct {
	bootDrive uint8
	numHD     uint8

	activityCB func(drive int)

	drives [0x100]drive

	sys *system.System
	p   *system.Peripheral
}

// DiskOption configures a Disk at construction time.
type DiskOption func(*Disk)

// WithBootDrive sets the DOS drive number port 0xB0 bootstraps from.
func WithBootDrive(num uint8) DiskOption { return func(d *Disk) { d.bootDrive = num } }

// WithActivityCallback registers a frontend hook invoked with the drive
// number on every sector transferred (spec.md §4.8's activity callback).
func WithActivityCallback(fn func(drive int)) DiskOption {
	return func(d *Disk) { d.activityCB = fn }
}

// NewDisk creates an uninstalled disk controller claiming ports 0xB0-0xB1.
func NewDisk(opts ...DiskOption) *system.Peripheral {
	d := &Disk{}
	for _, o := range opts {
		o(d)
	}
	p := &system.Peripheral{Name: "disk", Class: "disk", State: d}
	p.Install = func(s *system.System) error {
		d.sys = s
		return s.InstallIO(p, 0xB0, 0xB1)
	}
	p.Reset = func(state []byte) error {
		if state != nil {
			return &system.Error{Kind: system.KindCantRestore, Peer: p.Name}
		}
		for i := range d.drives {
			d.drives[i].ah = 0
			d.drives[i].cf = false
		}
		return nil
	}
	p.In = d.in
	p.Out = d.out
	d.p = p
	return p
}

// SetBootDrive changes the drive port 0xB0 bootstraps from.
func (d *Disk) SetBootDrive(num uint8) { d.bootDrive = num }

// SetActivityCallback replaces the per-sector activity callback.
func (d *Disk) SetActivityCallback(fn func(drive int)) { d.activityCB = fn }

// Mount attaches f as drive num's backing image, inferring CHS geometry
// from its size per spec.md §4.8's fixed table (40/80 tracks, 8/9/15/18
// sectors, 1/2 heads for floppies; 63x16 for hard disks, cylinder count
// derived from size). num >= 0x80 is a hard drive; images over 1,474,560
// bytes require a hard-drive number. A *os.File backing image is taken
// under a best-effort exclusive advisory lock so two instances never
// silently share one image; failure to lock is logged, not fatal.
func (d *Disk) Mount(num int, f io.ReadWriteSeeker) error {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return system.UserError(d.p.Name, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return system.UserError(d.p.Name, err)
	}
	if size > 1474560 && num < 0x80 {
		return system.UserError(d.p.Name, errInvalidHardDriveNumber)
	}

	dr := &d.drives[num&0xFF]
	if dr.file != nil {
		d.Unmount(num)
	}
	*dr = drive{}

	if num >= 0x80 {
		dr.cylinders = uint16(size / (63 * 16 * 512))
		dr.sectors = 63
		dr.heads = 16
		dr.isHD = true
		d.numHD++
	} else {
		dr.cylinders, dr.sectors, dr.heads = 80, 18, 2
		if size <= 1228800 {
			dr.sectors = 15
		}
		if size <= 737280 {
			dr.sectors = 9
		}
		if size <= 368640 {
			dr.cylinders, dr.sectors = 40, 9
		}
		if size <= 163840 {
			dr.cylinders, dr.sectors, dr.heads = 40, 8, 1
		}
	}

	dr.file = f
	dr.size = size
	dr.ah, dr.cf = 0, false

	if osFile, ok := f.(*os.File); ok {
		if err := unix.Flock(int(osFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			log.Printf("disk: could not lock image %s for drive %d: %v", osFile.Name(), num, err)
		}
	}
	return nil
}

// Unmount detaches drive num's backing image, returning whether one was
// mounted.
func (d *Disk) Unmount(num int) bool {
	dr := &d.drives[num&0xFF]
	had := dr.file != nil
	if osFile, ok := dr.file.(*os.File); ok {
		_ = unix.Flock(int(osFile.Fd()), unix.LOCK_UN)
	}
	dr.file = nil
	if dr.isHD {
		d.numHD--
	}
	return had
}

var errInvalidHardDriveNumber = diskError("hard drive image requires a drive number of 0x80 or higher")

type diskError string

func (e diskError) Error() string { return string(e) }

// execute walks dr's backing file for count sectors starting at the CHS
// address (cylinder, head, sector), reading into or writing from physical
// memory at addr, and returns the number of sectors actually transferred
// (short of count on a sector-0 request or a host I/O failure).
func execute(s *system.System, dr *drive, read bool, addr uint32, cylinder, sector, head uint16, count uint8, onSector func()) uint8 {
	if sector == 0 {
		return 0
	}
	lba := (int(cylinder)*int(dr.heads)+int(head))*int(dr.sectors) + int(sector) - 1
	if _, err := dr.file.Seek(int64(lba)*sectorSize, io.SeekStart); err != nil {
		return 0
	}
	if onSector != nil {
		onSector()
	}

	var buf [sectorSize]byte
	var done uint8
	for done < count {
		if read {
			n, err := io.ReadFull(dr.file, buf[:])
			if n != sectorSize || err != nil {
				break
			}
			for _, b := range buf {
				s.WriteByte(addr, b)
				addr++
			}
		} else {
			for i := range buf {
				buf[i] = s.ReadByte(addr)
				addr++
			}
			n, err := dr.file.Write(buf[:])
			if n != sectorSize || err != nil {
				break
			}
		}
		done++
	}
	return done
}

func (d *Disk) execute(driveNum int, read bool, addr uint32, cylinder, sector, head uint16, count uint8) uint8 {
	dr := &d.drives[driveNum&0xFF]
	return execute(d.sys, dr, read, addr, cylinder, sector, head, count, func() {
		if d.activityCB != nil {
			d.activityCB(driveNum)
		}
	})
}

// executeAndSet implements the int 0x13 read/write (functions 2/3) register
// convention: CHS packed into CH/CL/DH, buffer at ES:BX, sector count in AL,
// result sector count back in AL, AH/CF set from success or "drive not
// mounted".
func (d *Disk) executeAndSet(read bool) {
	regs := d.sys.Registers()
	dl := lo(regs.DX)
	dr := &d.drives[dl]
	if dr.file == nil {
		setHi(&regs.AX, 1)
		regs.Flags |= system.FlagCF
		return
	}

	ch, cl := hi(regs.CX), lo(regs.CX)
	cylinder := uint16(ch) + uint16(cl/64)*256
	sector := uint16(cl & 0x3F)
	head := uint16(hi(regs.DX))
	addr := uint32(regs.ES)<<4 + uint32(regs.BX)
	count := lo(regs.AX)

	al := d.execute(int(dl), read, addr, cylinder, sector, head, count)
	setLo(&regs.AX, al)
	setHi(&regs.AX, 0)
	regs.Flags &^= system.FlagCF
}

// bootstrap implements port 0xB0: load the boot drive's first sector to
// 0000:7C00 and set DL to the boot drive, the real-mode MBR load convention.
func (d *Disk) bootstrap() {
	dr := &d.drives[d.bootDrive]
	if dr.file == nil {
		log.Printf("disk: no boot drive mounted (drive %d)", d.bootDrive)
		return
	}
	regs := d.sys.Registers()
	setLo(&regs.DX, d.bootDrive)
	al := d.execute(int(d.bootDrive), true, 0x7C00, 0, 1, 0, 1)
	setLo(&regs.AX, al)
}

func (d *Disk) in(port uint16) uint8 {
	d.sys.Wait(diskWait)
	switch port {
	case 0xB0: // 0xFF when the boot drive is a hard disk, 0 when it is a floppy
		if d.bootDrive >= 0x80 {
			return 0xFF
		}
		return 0
	case 0xB1:
		dl := lo(d.sys.Registers().DX)
		if d.drives[dl].file != nil {
			return 0
		}
		return 0xFF
	}
	return 0xFF
}

func (d *Disk) out(port uint16, _ uint8) {
	d.sys.Wait(diskWait)
	regs := d.sys.Registers()

	switch port {
	case 0xB0:
		d.bootstrap()
	case 0xB1:
		dl := lo(regs.DX)
		dr := &d.drives[dl]

		switch hi(regs.AX) {
		case 0: // reset
			setHi(&regs.AX, 0)
			regs.Flags &^= system.FlagCF
		case 1: // return status: answer from the latch, skip re-latching below
			setHi(&regs.AX, dr.ah)
			if dr.cf {
				regs.Flags |= system.FlagCF
			} else {
				regs.Flags &^= system.FlagCF
			}
			return
		case 2: // read sector
			d.executeAndSet(true)
		case 3: // write sector
			d.executeAndSet(false)
		case 4, 5: // format track: no-op success
			setHi(&regs.AX, 0)
			regs.Flags &^= system.FlagCF
		case 8: // drive parameters
			if dr.file == nil {
				setHi(&regs.AX, 0xAA)
				regs.Flags |= system.FlagCF
			} else {
				setHi(&regs.AX, 0)
				regs.Flags &^= system.FlagCF
				setHi(&regs.CX, uint8(dr.cylinders-1))
				setLo(&regs.CX, uint8((dr.sectors&0x3F)+(dr.cylinders/256)*64))
				setHi(&regs.DX, uint8(dr.heads-1))
				if dl < 0x80 {
					setLo(&regs.BX, 4)
					setLo(&regs.DX, 2)
				} else {
					setLo(&regs.DX, d.numHD)
				}
			}
		case 0x15, 0x41, 0x48: // disk type / extended-int13 probes: unsupported
			regs.Flags |= system.FlagCF
		default:
			regs.Flags |= system.FlagCF
		}

		dr.ah = hi(regs.AX)
		dr.cf = regs.Flags&system.FlagCF != 0
		if dr.isHD {
			d.sys.WriteByte(0x0474, dr.ah) // BIOS data area hard-disk status
		}
	}
}
