package onboard

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v2"
)

const testYaml = `
version: 1
backend: maestro
serial:
  port: /dev/serial0
pulse: {min: 1000, neutral: 1500, max: 2000}
thrusters:
  horizontal_port:      {channel: 0, rotation: cw,  forward_pin: 5,  reverse_pin: 6}
  horizontal_starboard: {channel: 1, rotation: ccw, forward_pin: 19, reverse_pin: 20}
  vertical:             {channel: 2, rotation: cw,  forward_pin: 21, reverse_pin: 16}
`

func parseTestYaml(t *testing.T, doc string) *RovConfig {
	t.Helper()
	cfg := new(RovConfig)
	if err := yaml.Unmarshal([]byte(doc), cfg); err != nil {
		t.Fatalf("unable to parse fixture: %v", err)
	}
	cfg.withDefaults()
	return cfg
}

func TestConfigParsing(t *testing.T) {
	cfg := parseTestYaml(t, testYaml)

	Convey("parsing is successful", t, func() {
		So(cfg.Validate(), ShouldBeNil)

		Convey("bindings come through", func() {
			tc := cfg.Thrusters.Get(HorizontalStarboard)
			So(tc.Channel, ShouldEqual, 1)
			So(tc.Rotation, ShouldEqual, "ccw")
			So(tc.ForwardPin, ShouldEqual, 19)
			So(tc.ReversePin, ShouldEqual, 20)
		})

		Convey("omitted settings pick up defaults", func() {
			So(cfg.Frequency, ShouldEqual, 50)
			So(cfg.Serial.Baud, ShouldEqual, 9600)
			So(cfg.Loop.CadenceMS, ShouldEqual, 50)
			So(cfg.Loop.DebounceSamples, ShouldEqual, 2)
			So(cfg.Loop.ArmingDelayMS, ShouldEqual, 2000)
		})
	})

	Convey("the pulse table resolves commands", t, func() {
		So(cfg.Pulse.For(Stop), ShouldEqual, 1500)
		So(cfg.Pulse.For(Forward), ShouldEqual, 2000)
		So(cfg.Pulse.For(Reverse), ShouldEqual, 1000)
	})
}

func TestConfigValidation(t *testing.T) {
	Convey("validation rejects unsafe tables", t, func() {
		Convey("pulse table out of order", func() {
			cfg := parseTestYaml(t, testYaml)
			cfg.Pulse = PulseTable{Min: 1500, Neutral: 1000, Max: 2000}
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("off-center neutral", func() {
			cfg := parseTestYaml(t, testYaml)
			cfg.Pulse = PulseTable{Min: 1100, Neutral: 1500, Max: 2000}
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("unknown backend", func() {
			cfg := parseTestYaml(t, testYaml)
			cfg.Backend = "gpioexpander"
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("unsupported version", func() {
			cfg := parseTestYaml(t, testYaml)
			cfg.Version = 3
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("pin shared between thrusters", func() {
			cfg := parseTestYaml(t, testYaml)
			tc := cfg.Thrusters["vertical"]
			tc.ForwardPin = 5 // horizontal_port forward
			cfg.Thrusters["vertical"] = tc
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("thruster bound to a single pin", func() {
			cfg := parseTestYaml(t, testYaml)
			tc := cfg.Thrusters["vertical"]
			tc.ReversePin = tc.ForwardPin
			cfg.Thrusters["vertical"] = tc
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("duplicate channel", func() {
			cfg := parseTestYaml(t, testYaml)
			tc := cfg.Thrusters["vertical"]
			tc.Channel = 0
			cfg.Thrusters["vertical"] = tc
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("missing thruster", func() {
			cfg := parseTestYaml(t, testYaml)
			delete(cfg.Thrusters, "vertical")
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("bad rotation label", func() {
			cfg := parseTestYaml(t, testYaml)
			tc := cfg.Thrusters["vertical"]
			tc.Rotation = "clockwise"
			cfg.Thrusters["vertical"] = tc
			So(cfg.Validate(), ShouldNotBeNil)
		})
	})
}
