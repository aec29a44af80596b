//go:build tinygo && baremetal && picocalc

package hal

import (
	"errors"
	"machine"
	"time"
)

const (
	picoCalcKbdAddr    uint16 = 0x1F
	picoCalcKbdFIFOCmd        = 0x09
	picoCalcKbdProbes         = 50
)

type i2cKeyboard struct {
	i2c   *machine.I2C
	write [1]byte
	read  [2]byte
}

// initI2CKeyboard finds the keyboard controller. The PicoCalc wires it to
// I2C1 but some targets only expose I2C0; the controller can take a while
// to answer after power-up.
func initI2CKeyboard() (*i2cKeyboard, error) {
	for _, bus := range []*machine.I2C{machine.I2C1, machine.I2C0} {
		if bus == nil {
			continue
		}
		for _, freq := range []uint32{100_000, 400_000} {
			err := bus.Configure(machine.I2CConfig{SCL: machine.GP7, SDA: machine.GP6, Frequency: freq})
			if err != nil {
				continue
			}
			k := &i2cKeyboard{i2c: bus, write: [1]byte{picoCalcKbdFIFOCmd}}
			for i := 0; i < picoCalcKbdProbes; i++ {
				if k.poll() == nil {
					return k, nil
				}
				time.Sleep(10 * time.Millisecond)
			}
		}
	}
	return nil, errors.New("keyboard: I2C unavailable")
}

func (k *i2cKeyboard) poll() error {
	return k.i2c.Tx(picoCalcKbdAddr, k.write[:], k.read[:])
}

func (k *i2cKeyboard) readEvent() (KeyEvent, bool) {
	if err := k.poll(); err != nil {
		return KeyEvent{}, false
	}
	return decodePicoCalcKey(k.read[0], k.read[1])
}
