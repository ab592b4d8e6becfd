package helper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	om "github.com/cevaris/ordered_map"
)

// CsvToStringSliceTrimSpaces converts a string of the form, 'f1, f2,,f3' into a slice of string values.
// Leading and trailing spaces are removed and empty values are dropped.
func CsvToStringSliceTrimSpaces(s string) []string {
	tokens := strings.Split(s, ",")
	retval := make([]string, 0, len(tokens))
	for _, v := range tokens {
		if t := strings.TrimSpace(v); t != "" {
			retval = append(retval, t)
		}
	}
	return retval
}

// StringSliceToOrderedMap adds each value in s to an ordered map with key and value set to the value in s.
func StringSliceToOrderedMap(s []string) *om.OrderedMap {
	retval := om.NewOrderedMap()
	for _, v := range s {
		retval.Set(v, v)
	}
	return retval
}

// GetTrueFalseStringAsBool trims spaces from s and checks if it can regexp (case insensitive) match "true".
func GetTrueFalseStringAsBool(s string) bool {
	re := regexp.MustCompile("(?i)^true$")
	return re.MatchString(strings.TrimSpace(s))
}

// InterfaceToString converts a row of values returned by database/sql into strings suitable for CSV output.
func InterfaceToString(src []interface{}) []string {
	retval := make([]string, len(src), len(src))
	for i, v := range src {
		switch x := v.(type) {
		case nil:
			retval[i] = ""
		case float64:
			xInt := int64(x)
			if x == float64(xInt) { // if we can treat this as an integer...
				retval[i] = fmt.Sprint(xInt)
			} else {
				retval[i] = strconv.FormatFloat(x, 'g', -1, 64)
			}
		case []uint8: // lib/pq returns numeric and some text types as bytes.
			retval[i] = string(x)
		case time.Time:
			retval[i] = x.Format(time.RFC3339)
		default:
			retval[i] = fmt.Sprint(v)
		}
	}
	return retval
}
