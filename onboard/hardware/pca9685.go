package hardware

import (
	"errors"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	deverrors "github.com/tetherworks/gorov/onboard/errors"
)

const (
	pcaName     = "pca9685"
	pcaChannels = 16

	pcaRegMode1    = 0x00
	pcaRegMode2    = 0x01
	pcaRegLED0OnL  = 0x06
	pcaRegPrescale = 0xFE

	pcaMode1Sleep   = 0x10
	pcaMode1AutoInc = 0x20
	pcaMode1Restart = 0x80
	pcaMode2OutDrv  = 0x04

	pcaOscHz      = 25000000
	pcaResolution = 4096
)

// i2cTx is the slice of i2c.Dev the backend needs; tests substitute a fake.
type i2cTx interface {
	Tx(w, r []byte) error
}

// PCA9685 drives the 16-channel I2C PWM expander. The output frequency is
// fixed at initialization by programming the prescaler; pulse widths are
// converted to a 12-bit off-tick count against that frequency's period.
type PCA9685 struct {
	bus    i2c.BusCloser
	dev    i2cTx
	freq   int
	lock   sync.Mutex
	closed bool
}

func NewPCA9685(busName string, addr uint16, freqHz int) (*PCA9685, error) {
	if _, err := host.Init(); err != nil {
		return nil, deverrors.ConnectionError{Backend: pcaName, Target: busName, Cause: err}
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, deverrors.ConnectionError{Backend: pcaName, Target: busName, Cause: err}
	}

	p := &PCA9685{
		bus:  bus,
		dev:  &i2c.Dev{Bus: bus, Addr: addr},
		freq: freqHz,
	}

	if err = p.setup(); err != nil {
		bus.Close()
		return nil, deverrors.ConnectionError{Backend: pcaName, Target: busName, Cause: err}
	}
	return p, nil
}

// setup programs the prescaler for the configured frame rate. The chip only
// accepts a prescale write while asleep.
func (p *PCA9685) setup() error {
	steps := [][]byte{
		{pcaRegMode1, pcaMode1Sleep},
		{pcaRegPrescale, prescaleFor(p.freq)},
		{pcaRegMode2, pcaMode2OutDrv},
		{pcaRegMode1, pcaMode1AutoInc},
	}
	for _, w := range steps {
		if err := p.dev.Tx(w, nil); err != nil {
			return err
		}
	}

	// oscillator needs 500us after wake before restart is honored
	time.Sleep(5 * time.Millisecond)
	return p.dev.Tx([]byte{pcaRegMode1, pcaMode1Restart | pcaMode1AutoInc}, nil)
}

func (p *PCA9685) Name() string { return pcaName }

func (p *PCA9685) Channels() int { return pcaChannels }

func (p *PCA9685) SetPulseWidth(channel, us int) error {
	if channel < 0 || channel >= pcaChannels {
		return deverrors.CapacityError{Backend: pcaName, Channel: channel, Limit: pcaChannels}
	}

	off := usToTicks(us, p.freq)
	w := []byte{
		pcaRegLED0OnL + byte(4*channel),
		0x00, 0x00, // on ticks: rise at frame start
		byte(off & 0xFF),
		byte(off >> 8 & 0x0F),
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return errors.New("pca9685: bus closed")
	}
	return p.dev.Tx(w, nil)
}

func (p *PCA9685) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.bus == nil {
		return nil
	}
	return p.bus.Close()
}

// prescaleFor computes the PRE_SCALE register value for an output
// frequency against the internal 25MHz oscillator.
func prescaleFor(freqHz int) byte {
	return byte((pcaOscHz+pcaResolution*freqHz/2)/(pcaResolution*freqHz) - 1)
}

// usToTicks converts a pulse width to 12-bit ticks of the configured frame.
func usToTicks(us, freqHz int) int {
	return us * freqHz * pcaResolution / 1000000
}

func ticksToUS(ticks, freqHz int) int {
	return ticks * 1000000 / (freqHz * pcaResolution)
}
