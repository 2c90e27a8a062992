package onboard

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	deverrors "github.com/tetherworks/gorov/onboard/errors"
	"github.com/tetherworks/gorov/onboard/hardware"
)

func TestNewController(t *testing.T) {
	Convey("a simulated controller wires the fake backend", t, func() {
		ctl, err := NewController(loopConfig(2000), true)

		So(err, ShouldBeNil)
		So(ctl.Backend, ShouldHaveSameTypeAs, &hardware.Fake{})
		So(ctl.Sampler, ShouldHaveSameTypeAs, NullSampler{})
		So(ctl.Loop, ShouldNotBeNil)
		So(ctl.Loop.State(), ShouldEqual, Unarmed)
	})

	Convey("a channel beyond the backend's limit is caught before running", t, func() {
		cfg := loopConfig(2000)
		tc := cfg.Thrusters["vertical"]
		tc.Channel = 20
		cfg.Thrusters["vertical"] = tc

		ctl, err := NewController(cfg, true)

		So(ctl, ShouldBeNil)
		So(err, ShouldHaveSameTypeAs, deverrors.CapacityError{})
		So(err.(deverrors.CapacityError).Channel, ShouldEqual, 20)
	})
}
