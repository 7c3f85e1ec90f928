package automation

// Registry is a read-only lookup interface over the runtime's entity,
// service, and device registries. The surrounding editor uses it to
// populate node payload fields and validate user input.
//
// The transpiler core never consults a Registry: parsing and generation
// carry payload fields verbatim. Implementations must be safe for
// concurrent use.
type Registry interface {
	// EntityExists reports whether an entity id is known to the runtime.
	EntityExists(entityID string) bool

	// ServiceExists reports whether a service (domain.name) is registered.
	ServiceExists(service string) bool

	// DeviceExists reports whether a device id is known to the runtime.
	DeviceExists(deviceID string) bool
}
