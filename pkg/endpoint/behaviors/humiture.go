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
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/carverauto/beaconradar/pkg/endpoint"
	"github.com/carverauto/beaconradar/pkg/models"
	"github.com/carverauto/beaconradar/pkg/session"
)

const (
	HumitureService      = "27763561-999c-4d6a-9fc4-c7272be10900"
	HumitureSerialAttr   = "27763b10-999c-4d6a-9fc4-c7272be10900"
	HumitureRecordsAttr  = "27763b12-999c-4d6a-9fc4-c7272be10900"
	HumitureBatteryAttr  = "27763b13-999c-4d6a-9fc4-c7272be10900"
	HumitureLiveAttr     = "27763b20-999c-4d6a-9fc4-c7272be10900"
	HumitureLoggerType   = "humiture_logger"
	humitureLoggerTitle  = "Humiture logger"
	humitureAdvertLength = 5
)

// HumitureLogger is a data logger that broadcasts its current reading in
// the advertisement. Polling reads its status attributes with the
// sequential read-all protocol; tracking subscribes to live readings.
type HumitureLogger struct{}

func NewHumitureLogger(models.Observation) (endpoint.Behavior, error) {
	return HumitureLogger{}, nil
}

func (HumitureLogger) Title() string { return humitureLoggerTitle }

// Advertisement decodes battery (byte 0), temperature (int16 LE, hundredths),
// humidity (uint16 LE, hundredths) and an ASCII serial number.
func (HumitureLogger) Advertisement(payload []byte, ts time.Time) (endpoint.Advertisement, error) {
	if len(payload) < humitureAdvertLength {
		return endpoint.Advertisement{}, fmt.Errorf("%w: %d bytes", errShortReading, len(payload))
	}

	temperature, humidity := decodeHumiture(payload[1:5])

	return endpoint.Advertisement{
		Serial: string(bytes.TrimRight(payload[humitureAdvertLength:], "\x00")),
		Samples: []models.Sample{
			models.IntegerSample(models.KeyBattery, int64(payload[0]), ts),
			models.NumberSample(models.KeyTemperature, temperature, ts),
			models.NumberSample(models.KeyHumidity, humidity, ts),
		},
	}, nil
}

func decodeHumiture(b []byte) (temperature, humidity float64) {
	temperature = float64(int16(binary.LittleEndian.Uint16(b[0:2]))) / 100
	humidity = float64(binary.LittleEndian.Uint16(b[2:4])) / 100

	return temperature, humidity
}

// EncodeHumiture renders a reading in the layout decoded by the advertisement
// and live attribute.
func EncodeHumiture(temperature, humidity float64) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint16(out[0:2], uint16(int16(math.Round(temperature*100))))
	binary.LittleEndian.PutUint16(out[2:4], uint16(math.Round(humidity*100)))

	return out
}

func (HumitureLogger) Poll(ctx context.Context, io endpoint.AttributeIO) (*session.ReadOperation, error) {
	return io.ReadAllAttributes(ctx, HumitureService, HumitureSerialAttr, HumitureRecordsAttr, HumitureBatteryAttr)
}

func (HumitureLogger) Subscribe(_ context.Context, io endpoint.AttributeIO) error {
	return io.SetNotify(HumitureLiveAttr, true)
}

func (HumitureLogger) Unsubscribe(_ context.Context, io endpoint.AttributeIO) error {
	return io.SetNotify(HumitureLiveAttr, false)
}

// Decode completes the poll on the battery attribute, the last one read.
func (HumitureLogger) Decode(attr string, value []byte, _ bool, ts time.Time) ([]models.Sample, bool, error) {
	switch attr {
	case HumitureBatteryAttr:
		if len(value) < 1 {
			return nil, true, fmt.Errorf("%w: battery", errShortReading)
		}

		return []models.Sample{models.IntegerSample(models.KeyBattery, int64(value[0]), ts)}, true, nil
	case HumitureLiveAttr:
		if len(value) < 4 {
			return nil, false, fmt.Errorf("%w: %d bytes", errShortReading, len(value))
		}

		temperature, humidity := decodeHumiture(value)

		return []models.Sample{
			models.NumberSample(models.KeyTemperature, temperature, ts),
			models.NumberSample(models.KeyHumidity, humidity, ts),
		}, false, nil
	default:
		return nil, false, nil
	}
}
