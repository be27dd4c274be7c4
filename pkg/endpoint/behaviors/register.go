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

// Package behaviors holds the built-in endpoint types.
package behaviors

import "github.com/carverauto/beaconradar/pkg/endpoint"

// DefaultAliases maps the names endpoints advertise to the built-in types.
var DefaultAliases = map[string]string{
	"SenseBio":   ThermoHygrometerType,
	"TH-Gauge":   ThermoHygrometerType,
	"RT-T":       HumitureLoggerType,
	"TZ-BT04":    HumitureLoggerType,
	"Humiture-T": HumitureLoggerType,
}

// Register installs the built-in endpoint types on f.
func Register(f *endpoint.Factory) {
	f.Register(ThermoHygrometerType, thermoHygrometerTitle, NewThermoHygrometer)
	f.Register(HumitureLoggerType, humitureLoggerTitle, NewHumitureLogger)
}
