package field

type Labels struct {
	Width  int
	Height int
	Data   []uint16
}

func NewLabels(width, height int) *Labels {
	return &Labels{Width: width, Height: height, Data: make([]uint16, width*height)}
}

func (l *Labels) At(x, y int) uint16 { return l.Data[y*l.Width+x] }

func (l *Labels) Set(x, y int, v uint16) { l.Data[y*l.Width+x] = v }

func (l *Labels) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < l.Width && y < l.Height
}

// Histogram counts cells per label value.
func (l *Labels) Histogram() map[uint16]int {
	out := map[uint16]int{}
	for _, v := range l.Data {
		out[v]++
	}
	return out
}

// Regions is a per-cell index into a region collection.
type Regions struct {
	Width  int
	Height int
	Data   []int32
}

func NewRegions(width, height int) *Regions {
	return &Regions{Width: width, Height: height, Data: make([]int32, width*height)}
}

func (r *Regions) At(x, y int) int { return int(r.Data[y*r.Width+x]) }
