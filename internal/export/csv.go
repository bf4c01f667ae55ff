package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteKeysCSV writes one row per key: bone, frame, kind, easing, then the
// numeric channels. Rows are in bone name order, then frame order.
func WriteKeysCSV(w io.Writer, l *layer.Layer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bone", "frame", "type", "easing", "values"}); err != nil {
		return err
	}
	for _, name := range l.GetExistBoneNames() {
		for _, b := range l.BoneKeys(name) {
			row := []string{
				name,
				strconv.Itoa(b.FrameNo()),
				b.Type().String(),
				b.Transform.Easing.String(),
			}
			for _, v := range b.Transform.Channels() {
				row = append(row, formatFloat(v))
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMotionCSV writes one row per interpolation segment.
func WriteMotionCSV(w io.Writer, l *layer.Layer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bone", "start", "end", "easing", "seconds"}); err != nil {
		return err
	}
	for _, name := range l.GetExistBoneNames() {
		pd := l.PlayData(name)
		if pd == nil {
			continue
		}
		for _, m := range pd.Motions {
			row := []string{
				name,
				strconv.Itoa(m.StFrame),
				strconv.Itoa(m.EdFrame),
				m.Easing().String(),
				strconv.FormatFloat(m.Duration(), 'f', 4, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBakedCSV samples every bone at each frame from 0 to the layer
// length, step frames apart, and writes one row per bone and sample.
func WriteBakedCSV(w io.Writer, l *layer.Layer, step int) error {
	if step <= 0 {
		step = 1
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"frame", "bone", "values"}); err != nil {
		return err
	}
	end := l.Length()
	for f := 0; f <= end; f += step {
		for _, name := range l.GetExistBoneNames() {
			v, err := l.ValueAt(name, float64(f))
			if err != nil {
				return err
			}
			if v == nil {
				continue
			}
			row := []string{strconv.Itoa(f), name}
			for _, c := range v.Channels() {
				row = append(row, formatFloat(c))
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
