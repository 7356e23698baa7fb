package pulse

type RenderQueueRange struct {
	Lower int
	Upper int
}

var (
	RenderQueueRangeAll         = RenderQueueRange{Lower: 0, Upper: 5000}
	RenderQueueRangeOpaque      = RenderQueueRange{Lower: 0, Upper: 2500}
	RenderQueueRangeTransparent = RenderQueueRange{Lower: 2501, Upper: 5000}
)

func (r RenderQueueRange) Contains(queue int) bool {
	return queue >= r.Lower && queue <= r.Upper
}

// FilteringSettings select the renderables a draw call considers.
type FilteringSettings struct {
	RenderQueueRange RenderQueueRange
	LayerMask        LayerMask
}

func NewFilteringSettings(queues RenderQueueRange, layers LayerMask) FilteringSettings {
	return FilteringSettings{RenderQueueRange: queues, LayerMask: layers}
}

func (f FilteringSettings) Matches(r *Renderable) bool {
	if r == nil || r.Mesh == nil || r.Material == nil || r.Material.Shader == nil {
		return false
	}

	return f.LayerMask.Contains(r.Layer) &&
		f.RenderQueueRange.Contains(r.Material.RenderQueue())
}
