package gpu

type Releaser interface {
	Release()
}

// ReleaseGuard frees the resources created while building a larger
// object, in reverse order, unless Keep was called. Defer Release right
// after creating the first resource.
type ReleaseGuard struct {
	resources []Releaser
}

func NewReleaseGuard(resources ...Releaser) *ReleaseGuard {
	return &ReleaseGuard{resources: resources}
}

// Add registers another resource to free on failure.
func (r *ReleaseGuard) Add(resource Releaser) {
	r.resources = append(r.resources, resource)
}

// Keep transfers ownership of all resources to the caller.
func (r *ReleaseGuard) Keep() {
	r.resources = nil
}

func (r *ReleaseGuard) Release() {
	for idx := len(r.resources) - 1; idx >= 0; idx-- {
		r.resources[idx].Release()
	}

	r.resources = nil
}
