package extract

import "time"

func Deadline(now time.Time) time.Time {
	return now.AddDate(0, 0, 7)
}

func Today() time.Time {
	return time.Now() // want `time.Now запрещён в пакете extract`
}

func Age(t time.Time) time.Duration {
	return time.Since(t) // want `time.Since запрещён в пакете extract`
}

var clock = time.Now // want `time.Now запрещён в пакете extract`
