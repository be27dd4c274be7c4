/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package behaviors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
)

// Attribute identifiers of the thermo-hygrometer sensor.
const (
	ThermoService         = "0000fff0-0000-1000-8000-00805f9b34fb"
	ThermoReadingAttr     = "0000fff1-0000-1000-8000-00805f9b34fb"
	ThermoNotifyAttr      = "0000fff2-0000-1000-8000-00805f9b34fb"
	ThermoHygrometerType  = "thermo_hygrometer"
	thermoHygrometerTitle = "Thermo-hygrometer"
)

var errShortReading = errors.New("reading too short")

// ThermoHygrometer polls a single temperature/humidity attribute and, while
// tracked, subscribes to the notifying copy of it.
type ThermoHygrometer struct{}

func NewThermoHygrometer(models.Observation) (endpoint.Behavior, error) {
	return ThermoHygrometer{}, nil
}

func (ThermoHygrometer) Title() string { return thermoHygrometerTitle }

func (ThermoHygrometer) Advertisement([]byte, time.Time) (endpoint.Advertisement, error) {
	return endpoint.Advertisement{}, nil
}

func (ThermoHygrometer) Poll(_ context.Context, io endpoint.AttributeIO) (*session.ReadOperation, error) {
	return nil, io.ReadAttribute(ThermoReadingAttr)
}

func (ThermoHygrometer) Subscribe(_ context.Context, io endpoint.AttributeIO) error {
	return io.SetNotify(ThermoNotifyAttr, true)
}

func (ThermoHygrometer) Unsubscribe(_ context.Context, io endpoint.AttributeIO) error {
	return io.SetNotify(ThermoNotifyAttr, false)
}

func (ThermoHygrometer) Decode(attr string, value []byte, pushed bool, ts time.Time) ([]models.Sample, bool, error) {
	switch attr {
	case ThermoReadingAttr, ThermoNotifyAttr:
	default:
		return nil, false, nil
	}

	temperature, humidity, err := DecodeThermo(value)
	if err != nil {
		return nil, false, err
	}

	samples := []models.Sample{
		models.NumberSample(models.KeyTemperature, temperature, ts),
		models.NumberSample(models.KeyHumidity, humidity, ts),
	}

	return samples, attr == ThermoReadingAttr && !pushed, nil
}

// DecodeThermo reads the 4-byte reading: signed integer and hundredths of
// the temperature, then of the humidity.
func DecodeThermo(value []byte) (temperature, humidity float64, err error) {
	if len(value) < 4 {
		return 0, 0, fmt.Errorf("%w: %d bytes", errShortReading, len(value))
	}

	temperature = float64(int8(value[0])) + float64(int8(value[1]))*0.01
	humidity = float64(int8(value[2])) + float64(int8(value[3]))*0.01

	return temperature, humidity, nil
}

// EncodeThermo is the inverse of DecodeThermo for values within range.
func EncodeThermo(temperature, humidity float64) []byte {
	split := func(v float64) (byte, byte) {
		whole := int8(v)
		frac := int8(math.Round((v - float64(whole)) * 100))

		return byte(whole), byte(frac)
	}

	t0, t1 := split(temperature)
	h0, h1 := split(humidity)

	return []byte{t0, t1, h0, h1}
}
