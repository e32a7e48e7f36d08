// Package telemetry defines the typed records carried by the vehicle's CAN
// packets. Records are plain value structs: fixed-width integer fields in
// wire order, all-zero defaults, structural equality. No scaling or unit
// conversion happens here; consumers own that.
package telemetry

// Validator is implemented by records whose decoded value must match an
// enumerated set before it may be stored.
type Validator interface {
	Validate() error
}

// H2AlarmPack (0x001): broadcast hydrogen alarm trip flag, all boards listen.
type H2AlarmPack struct {
	Tripped uint8 `json:"tripped"`
}

// SyncLEDPack (0x00F): broadcast LED synchronization flag.
type SyncLEDPack struct {
	LEDOn uint8 `json:"led_on"`
}

// FetPack (0x010): FET board configuration and power-path telemetry.
type FetPack struct {
	FetConfig uint32 `json:"fet_config"`
	InputVolt uint32 `json:"input_volt"`
	CapVolt   uint32 `json:"cap_volt"`
	CapCurr   uint32 `json:"cap_curr"`
	ResCurr   uint32 `json:"res_curr"`
	OutCurr   uint32 `json:"out_curr"`
}

// RelChargePack (0x013): accumulated charge per source.
type RelChargePack struct {
	FcCoulombs  int32 `json:"fc_coulombs"`
	CapCoulombs int32 `json:"cap_coulombs"`
}

// RelEnergyPack (0x014): accumulated energy per source.
type RelEnergyPack struct {
	FcJoules  int32 `json:"fc_joules"`
	CapJoules int32 `json:"cap_joules"`
}

// RelMotorPack (0x015): motor voltage and current.
type RelMotorPack struct {
	MtrVolt uint32 `json:"mtr_volt"`
	MtrCurr uint32 `json:"mtr_curr"`
}

// RelCapPack (0x016): capacitor voltage and current. Current is signed;
// the capacitor sinks while charging.
type RelCapPack struct {
	CapVolt uint32 `json:"cap_volt"`
	CapCurr int32  `json:"cap_curr"`
}

// RelFuelCellPack (0x017): fuel-cell voltage and current.
type RelFuelCellPack struct {
	FcVolt uint32 `json:"fc_volt"`
	FcCurr uint32 `json:"fc_curr"`
}

// FccCorePack (0x020): fuel-cell stack temperature and supply pressure.
type FccCorePack struct {
	FcTemp  int32  `json:"fc_temp"`
	FcPress uint32 `json:"fc_press"`
}

// FccFanPack (0x021): stack cooling fan speeds.
type FccFanPack struct {
	FanRPM1 uint32 `json:"fan_rpm1"`
	FanRPM2 uint32 `json:"fan_rpm2"`
}

// FccAmbientPack (0x022): ambient temperature and humidity at the stack.
type FccAmbientPack struct {
	BmeTemp  uint32 `json:"bme_temp"`
	BmeHumid uint32 `json:"bme_humid"`
}

// H2SensePack (0x030): hydrogen concentration sensor array.
type H2SensePack struct {
	H2Sense1 uint16 `json:"h2_sense_1"`
	H2Sense2 uint16 `json:"h2_sense_2"`
	H2Sense3 uint16 `json:"h2_sense_3"`
	H2Sense4 uint16 `json:"h2_sense_4"`
}

// H2MonitorPack (0x031): alarm-board ambient readings and supply current
// monitors.
type H2MonitorPack struct {
	BmeTemp  uint16 `json:"bme_temp"`
	BmeHumid uint16 `json:"bme_humid"`
	Imon7V   uint16 `json:"imon_7v"`
	Imon12V  uint16 `json:"imon_12v"`
}

// H2AlarmArmPack (0x032): whether the hydrogen alarm is armed.
type H2AlarmArmPack struct {
	Armed uint8 `json:"armed"`
}

// BoostInputPack (0x040): boost converter input side.
type BoostInputPack struct {
	InCurr uint32 `json:"in_curr"`
	InVolt uint32 `json:"in_volt"`
}

// BoostOutputPack (0x041): boost converter output side.
type BoostOutputPack struct {
	OutCurr uint32 `json:"out_curr"`
	OutVolt uint32 `json:"out_volt"`
}

// BoostEnergyPack (0x042): boost converter efficiency and delivered energy.
type BoostEnergyPack struct {
	Efficiency uint32 `json:"efficiency"`
	Joules     uint32 `json:"joules"`
}

// BattOutputPack (0x050): compact battery output pair.
type BattOutputPack struct {
	OutCurr uint16 `json:"out_curr"`
	OutVolt uint16 `json:"out_volt"`
}
