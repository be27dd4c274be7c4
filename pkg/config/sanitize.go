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

package config

import (
	"encoding/json"
	"reflect"
	"strings"
)

const redacted = "[redacted]"

// SanitizeForDisplay renders cfg as JSON with every field tagged
// `sensitive:"true"` replaced by a placeholder.
func SanitizeForDisplay(cfg interface{}) ([]byte, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	redact(reflect.ValueOf(cfg), doc)

	return json.Marshal(doc)
}

func redact(v reflect.Value, doc interface{}) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}

		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		obj, ok := doc.(map[string]interface{})
		if !ok {
			return
		}

		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}

			name := strings.Split(f.Tag.Get("json"), ",")[0]
			if name == "-" {
				continue
			}

			if name == "" {
				name = f.Name
			}

			child, present := obj[name]
			if !present {
				continue
			}

			if f.Tag.Get("sensitive") == "true" {
				obj[name] = redacted
				continue
			}

			redact(v.Field(i), child)
		}
	case reflect.Slice, reflect.Array:
		arr, ok := doc.([]interface{})
		if !ok {
			return
		}

		for i := 0; i < v.Len() && i < len(arr); i++ {
			redact(v.Index(i), arr[i])
		}
	case reflect.Map:
		obj, ok := doc.(map[string]interface{})
		if !ok {
			return
		}

		iter := v.MapRange()
		for iter.Next() {
			if key, ok := iter.Key().Interface().(string); ok {
				redact(iter.Value(), obj[key])
			}
		}
	default:
	}
}
