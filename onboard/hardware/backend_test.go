package hardware

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	deverrors "github.com/tetherworks/gorov/onboard/errors"
)

func TestWriteRetry(t *testing.T) {
	Convey("a clean write goes through once", t, func() {
		fake := NewFake(3)

		So(WriteRetry(fake, 1, 1500), ShouldBeNil)
		So(fake.Writes(), ShouldHaveLength, 1)
	})

	Convey("a single transient failure is absorbed by the retry", t, func() {
		fake := NewFake(3)
		fake.FailNext(1, 1)

		So(WriteRetry(fake, 1, 1900), ShouldBeNil)
		So(fake.LastPulse(1), ShouldEqual, 1900)
	})

	Convey("two consecutive failures escalate with full context", t, func() {
		fake := NewFake(3)
		fake.FailNext(2, 2)

		err := WriteRetry(fake, 2, 1100)

		So(err, ShouldNotBeNil)
		So(err, ShouldHaveSameTypeAs, deverrors.ActuationError{})
		ae := err.(deverrors.ActuationError)
		So(ae.Backend, ShouldEqual, "fake")
		So(ae.Channel, ShouldEqual, 2)
		So(ae.Pulse, ShouldEqual, 1100)
		So(ae.Cause, ShouldNotBeNil)
	})
}
