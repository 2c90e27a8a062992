package hardware

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeI2C struct {
	writes [][]byte
	err    error
}

func (f *fakeI2C) Tx(w, r []byte) error {
	if f.err != nil {
		return f.err
	}
	buf := make([]byte, len(w))
	copy(buf, w)
	f.writes = append(f.writes, buf)
	return nil
}

func TestPCA9685Registers(t *testing.T) {
	dev := &fakeI2C{}
	p := &PCA9685{dev: dev, freq: 50}

	Convey("setup programs the prescaler while asleep", t, func() {
		So(p.setup(), ShouldBeNil)

		So(dev.writes[0], ShouldResemble, []byte{pcaRegMode1, pcaMode1Sleep})
		// 25MHz / (4096 * 50Hz), rounded, minus one
		So(dev.writes[1], ShouldResemble, []byte{pcaRegPrescale, 121})
		So(dev.writes[len(dev.writes)-1], ShouldResemble, []byte{pcaRegMode1, pcaMode1Restart | pcaMode1AutoInc})
	})

	Convey("a pulse write addresses the channel's LED registers", t, func() {
		dev.writes = nil
		So(p.SetPulseWidth(2, 1500), ShouldBeNil)

		// 1500us of a 20ms frame is 307 of 4096 ticks
		So(dev.writes, ShouldHaveLength, 1)
		So(dev.writes[0], ShouldResemble, []byte{pcaRegLED0OnL + 8, 0x00, 0x00, 307 & 0xFF, 307 >> 8})
	})

	Convey("channel 16 is refused", t, func() {
		So(p.SetPulseWidth(16, 1500), ShouldNotBeNil)
	})

	Convey("bus errors surface to the caller", t, func() {
		dev.err = errors.New("i2c nack")
		So(p.SetPulseWidth(0, 1500), ShouldNotBeNil)
	})

	Convey("close is idempotent without a bus handle", t, func() {
		So(p.Close(), ShouldBeNil)
		So(p.Close(), ShouldBeNil)
		dev.err = nil
		So(p.SetPulseWidth(0, 1500), ShouldNotBeNil)
	})
}

func TestPCA9685Conversion(t *testing.T) {
	Convey("named pulse widths land on the expected ticks at 50Hz", t, func() {
		So(usToTicks(1000, 50), ShouldEqual, 204)
		So(usToTicks(1500, 50), ShouldEqual, 307)
		So(usToTicks(2000, 50), ShouldEqual, 409)
	})

	Convey("round trip stays within one quantization step", t, func() {
		step := ticksToUS(1, 50) + 1 // one 12-bit tick of a 20ms frame
		for us := 1000; us <= 2000; us += 17 {
			back := ticksToUS(usToTicks(us, 50), 50)
			So(back, ShouldBeBetweenOrEqual, us-step, us)
		}
	})
}
