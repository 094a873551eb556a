package gascurve

// Sensor identifies a physical gas sensor model.
type Sensor string

const (
	SensorMQ2   Sensor = "MQ2"
	SensorMQ6   Sensor = "MQ6"
	SensorMQ7   Sensor = "MQ7"
	SensorMQ131 Sensor = "MQ131"
)

// Gas identifies a target gas a sensor may be asked to measure.
type Gas string

const (
	GasLPG    Gas = "LPG"
	GasCO     Gas = "CO"
	GasSmoke  Gas = "SMOKE"
	GasOzone  Gas = "O3"
	GasCL2    Gas = "CL2"
	GasCO2    Gas = "CO2"
	GasNH4    Gas = "NH4"
	GasMethan Gas = "CH4"
)

// curveKey indexes the static curve table.
type curveKey struct {
	sensor Sensor
	gas    Gas
}

// curves holds the two-point log-log fits from the sensor datasheets.
// Each entry is (x0, y0, slope) with x0/y0 taken from the first datasheet
// point at concentration 10^x0 ppm. Slopes are negative: resistance ratio
// falls as concentration rises.
var curves = map[curveKey]Curve{
	{SensorMQ2, GasLPG}:     {X0: 2.3, Y0: 0.21, Slope: -0.47},
	{SensorMQ2, GasCO}:      {X0: 2.3, Y0: 0.72, Slope: -0.34},
	{SensorMQ2, GasSmoke}:   {X0: 2.3, Y0: 0.53, Slope: -0.44},
	{SensorMQ6, GasLPG}:     {X0: 2.3, Y0: 0.00, Slope: -0.42},
	{SensorMQ6, GasMethan}:  {X0: 2.3, Y0: 0.18, Slope: -0.33},
	{SensorMQ7, GasCO}:      {X0: 1.7, Y0: 0.23, Slope: -0.67},
	{SensorMQ131, GasOzone}: {X0: 1.7, Y0: 0.87, Slope: -0.92},
	{SensorMQ131, GasCL2}:   {X0: 1.7, Y0: 0.64, Slope: -0.74},
}

// CurveFor returns the calibration curve for a (sensor, gas) pair.
// Physical sensors support only a subset of gases; an unsupported pair
// returns ok=false and the caller treats the reading as zero concentration.
// This mirrors configuration-gated sensor availability, so it is not an
// error.
func CurveFor(sensor Sensor, gas Gas) (Curve, bool) {
	c, ok := curves[curveKey{sensor, gas}]
	return c, ok
}

// Gases returns the gases a sensor model supports, in stable order.
func Gases(sensor Sensor) []Gas {
	order := []Gas{GasLPG, GasCO, GasSmoke, GasOzone, GasCL2, GasCO2, GasNH4, GasMethan}
	var out []Gas
	for _, g := range order {
		if _, ok := curves[curveKey{sensor, g}]; ok {
			out = append(out, g)
		}
	}
	return out
}
