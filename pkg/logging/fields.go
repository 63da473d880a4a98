package logging

import "time"

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Uint32(key string, value uint32) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Field helpers for the names used throughout the overlay

func Component(name string) Field {
	return String("component", name)
}

func Path(p string) Field {
	return String("path", p)
}

func HandleID(id string) Field {
	return String("handle_id", id)
}

func Reason(r string) Field {
	return String("reason", r)
}

func Mode(m string) Field {
	return String("mode", m)
}

func Offset(off int64) Field {
	return Int64("offset", off)
}

func Amount(n int) Field {
	return Int("amount", n)
}
