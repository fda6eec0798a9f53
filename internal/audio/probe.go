package audio

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/faiface/beep/mp3"
)

// Info: что удалось узнать о загруженном mp3
type Info struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// Probe читает заголовки кадров и считает длительность. Данные не меняются.
func Probe(data []byte) (info Info, err error) {
	if len(data) == 0 {
		return Info{}, errors.New("empty audio")
	}

	// go-mp3 на битых кадрах может упасть с index out of range
	defer func() {
		if p := recover(); p != nil {
			info, err = Info{}, fmt.Errorf("decode mp3: %v", p)
		}
	}()

	// декодеру нужен Seeker, иначе длина потока неизвестна
	streamer, format, err := mp3.Decode(seekCloser{bytes.NewReader(data)})
	if err != nil {
		return Info{}, fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	n := streamer.Len()
	if n < 0 {
		n = 0
	}

	return Info{
		Duration:   format.SampleRate.D(n),
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}, nil
}

type seekCloser struct {
	*bytes.Reader
}

func (seekCloser) Close() error { return nil }
