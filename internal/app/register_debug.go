package app

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/mag"
	"github.com/relabs-tech/compass_computer/internal/qmc5883l"
)

// RunRegisterDebug dumps the QMC5883L register file to stdout, decoding the
// status bits and axis counts. It talks to the bus directly without running
// the driver's init sequence, so the chip's current configuration is shown
// untouched. With watch=true the dump repeats every interval.
func RunRegisterDebug(watch bool, interval time.Duration) error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.CompassI2CBus)
	if err != nil {
		return fmt.Errorf("i2c open %q: %w", cfg.CompassI2CBus, err)
	}
	defer bus.Close()

	addr := cfg.CompassI2CAddr
	if addr == 0 {
		addr = qmc5883l.DefaultAddr
	}
	dev := i2c.Dev{Addr: addr, Bus: bus}
	log.Printf("register debug: bus %q addr 0x%02X", cfg.CompassI2CBus, addr)

	if !watch {
		return dumpRegisters(&dev)
	}

	for {
		if err := dumpRegisters(&dev); err != nil {
			return err
		}
		time.Sleep(interval)
	}
}

func dumpRegisters(dev *i2c.Dev) error {
	var regs [14]byte
	for addr := byte(0x00); addr <= 0x0D; addr++ {
		var b [1]byte
		if err := dev.Tx([]byte{addr}, b[:]); err != nil {
			return fmt.Errorf("read register 0x%02X: %w", addr, err)
		}
		regs[addr] = b[0]
	}

	fmt.Println("---- QMC5883L register file ----")
	for addr := byte(0x00); addr <= 0x0D; addr++ {
		name, ok := qmc5883l.RegisterNames[addr]
		if !ok {
			name = "RESERVED"
		}
		fmt.Printf("  0x%02X  %-9s 0x%02X\n", addr, name, regs[addr])
	}

	// Decoded view
	sample := mag.DecodeSample([6]byte{regs[0], regs[1], regs[2], regs[3], regs[4], regs[5]})
	fmt.Printf("  axes: x=%d y=%d z=%d\n", sample.X, sample.Y, sample.Z)

	status := regs[0x06]
	fmt.Printf("  status: DRDY=%d OVL=%d DOR=%d\n",
		status&0x01, (status&0x02)>>1, (status&0x04)>>2)

	temp := int(regs[0x07]) | int(regs[0x08])<<8
	if temp > 32767 {
		temp -= 65536
	}
	fmt.Printf("  temperature: %.2f C (relative)\n", float64(temp)/100)

	return nil
}
