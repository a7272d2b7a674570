package observer

import (
	"terraforge.ai/internal/encoding"
	"terraforge.ai/internal/observerproto"
	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/pipeline"
)

const (
	LayerPlates    = "plates"
	LayerBiomes    = "biomes"
	LayerRivers    = "rivers"
	LayerResources = "resources"
)

func layerInfos(w *pipeline.World) []observerproto.LayerInfo {
	var out []observerproto.LayerInfo
	for _, name := range pipeline.ScalarLayers() {
		out = append(out, observerproto.LayerInfo{Name: name, Kind: observerproto.KindScalar})
	}
	if w.Plates != nil {
		out = append(out, observerproto.LayerInfo{Name: LayerPlates, Kind: observerproto.KindScalar})
	}
	out = append(out,
		observerproto.LayerInfo{Name: LayerBiomes, Kind: observerproto.KindLabels},
		observerproto.LayerInfo{Name: LayerRivers, Kind: observerproto.KindPoints},
		observerproto.LayerInfo{Name: LayerResources, Kind: observerproto.KindPoints},
	)
	return out
}

func swatches(in []pipeline.Swatch) []observerproto.Swatch {
	out := make([]observerproto.Swatch, len(in))
	for i, s := range in {
		out[i] = observerproto.Swatch{ID: uint16(i), Name: s.Name, Color: s.Color.String()}
	}
	return out
}

// buildLayer returns the LAYER frame for name, or an error code and message.
func buildLayer(w *pipeline.World, name string) (observerproto.LayerMsg, string, string) {
	msg := observerproto.LayerMsg{
		Type:            "LAYER",
		ProtocolVersion: observerproto.Version,
		Layer:           name,
		Width:           w.Width,
		Height:          w.Height,
	}
	if f, ok := w.Layer(name); ok {
		if f == nil {
			return msg, observerproto.ErrLayerEmpty, "layer not generated"
		}
		msg.Kind = observerproto.KindScalar
		msg.Encoding = observerproto.EncodingQ8
		msg.Data = encoding.EncodeRLE(encoding.Quantize(f.Data))
		return msg, "", ""
	}
	switch name {
	case LayerPlates:
		if w.Plates == nil || w.Plates.Field == nil {
			return msg, observerproto.ErrLayerEmpty, "tessellation disabled"
		}
		msg.Kind = observerproto.KindScalar
		msg.Encoding = observerproto.EncodingQ8
		msg.Data = encoding.EncodeRLE(encoding.Quantize(w.Plates.Field.Data))
	case LayerBiomes:
		if w.Biomes == nil {
			return msg, observerproto.ErrLayerEmpty, "layer not generated"
		}
		msg.Kind = observerproto.KindLabels
		msg.Encoding = observerproto.EncodingU16
		msg.Data = encoding.EncodeRLE(w.Biomes.Data)
	case LayerRivers:
		msg.Kind = observerproto.KindPoints
		msg.Points = points(w.Rivers.Entries())
	case LayerResources:
		msg.Kind = observerproto.KindPoints
		msg.Points = points(w.Resources.Entries())
	default:
		return msg, observerproto.ErrUnknownLayer, "unknown layer: " + name
	}
	return msg, "", ""
}

func points(entries []field.Entry) []observerproto.Point {
	out := make([]observerproto.Point, len(entries))
	for i, e := range entries {
		out[i] = observerproto.Point{X: e.Pos.X, Y: e.Pos.Y, Payload: e.Payload}
	}
	return out
}
