package timeutil

import "time"

func NowUnix() int64 {
	return time.Now().Unix()
}

func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

func FromUnix(sec int64) time.Time {
	return time.Unix(sec, 0)
}
