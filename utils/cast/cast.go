/*
 * Copyright 2025 The SpitBreak Authors.
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

// Package cast converts loosely typed values, the kind arriving in query
// parameters and configuration maps.
package cast

import (
	"fmt"
	"strconv"
)

// ToInt converts value to int, returning 0 when it cannot.
func ToInt(value interface{}) int {
	v, _ := ToIntE(value)
	return v
}

// ToIntE converts value to int.
func ToIntE(value interface{}) (int, error) {
	v, err := ToInt64E(value)
	return int(v), err
}

// ToInt64 converts value to int64, returning 0 when it cannot.
func ToInt64(value interface{}) int64 {
	v, _ := ToInt64E(value)
	return v
}

// ToInt64E converts value to int64.
func ToInt64E(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %v of type %T to int", value, value)
	}
}

// ToFloat64 converts value to float64, returning 0 when it cannot.
func ToFloat64(value interface{}) float64 {
	v, _ := ToFloat64E(value)
	return v
}

// ToFloat64E converts value to float64.
func ToFloat64E(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		i, err := ToInt64E(value)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %v of type %T to float64", value, value)
		}
		return float64(i), nil
	}
}

// ToBool converts value to bool, returning false when it cannot. Strings
// follow strconv.ParseBool, so "1" and "true" are both true.
func ToBool(value interface{}) bool {
	v, _ := ToBoolE(value)
	return v
}

// ToBoolE converts value to bool.
func ToBoolE(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		i, err := ToInt64E(value)
		if err != nil {
			return false, fmt.Errorf("cannot convert %v of type %T to bool", value, value)
		}
		return i != 0, nil
	}
}
