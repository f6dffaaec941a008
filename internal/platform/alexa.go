package platform

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
)

// Alexa Smart Home vocabulary used by the cover endpoint.
const (
	AlexaCategoryInteriorBlind = "INTERIOR_BLIND"
	AlexaRangeController       = "Alexa.RangeController"
	AlexaPowerController       = "Alexa.PowerController"
	AlexaEndpointHealth        = "Alexa.EndpointHealth"
	AlexaRangeInstance         = "Blind.Position"
	AlexaUnitPercent           = "Alexa.Unit.Percent"
)

// AlexaEndpoint is the discovery document of one cover.
type AlexaEndpoint struct {
	EndpointID        string            `json:"endpointId"`
	FriendlyName      string            `json:"friendlyName"`
	Description       string            `json:"description"`
	ManufacturerName  string            `json:"manufacturerName"`
	DisplayCategories []string          `json:"displayCategories"`
	Capabilities      []AlexaCapability `json:"capabilities"`
	Cookie            map[string]string `json:"cookie,omitempty"`
}

// AlexaCapability is one interface an endpoint supports.
type AlexaCapability struct {
	Type          string              `json:"type"`
	Interface     string              `json:"interface"`
	Instance      string              `json:"instance,omitempty"`
	Version       string              `json:"version"`
	Properties    *AlexaProperties    `json:"properties,omitempty"`
	Configuration *AlexaConfiguration `json:"configuration,omitempty"`
}

// AlexaProperties lists the reportable properties of a capability.
type AlexaProperties struct {
	Supported           []AlexaPropertyName `json:"supported"`
	ProactivelyReported bool                `json:"proactivelyReported"`
	Retrievable         bool                `json:"retrievable"`
}

// AlexaPropertyName names one property.
type AlexaPropertyName struct {
	Name string `json:"name"`
}

// AlexaConfiguration is the RangeController range definition.
type AlexaConfiguration struct {
	SupportedRange AlexaRange `json:"supportedRange"`
	UnitOfMeasure  string     `json:"unitOfMeasure"`
}

// AlexaRange bounds a RangeController value.
type AlexaRange struct {
	MinimumValue int `json:"minimumValue"`
	MaximumValue int `json:"maximumValue"`
	Precision    int `json:"precision"`
}

// AlexaStateProperty is one entry of a ChangeReport or StateReport context.
type AlexaStateProperty struct {
	Namespace                 string    `json:"namespace"`
	Instance                  string    `json:"instance,omitempty"`
	Name                      string    `json:"name"`
	Value                     any       `json:"value"`
	TimeOfSample              time.Time `json:"timeOfSample"`
	UncertaintyInMilliseconds int       `json:"uncertaintyInMilliseconds"`
}

// AlexaAdapter exposes covers as Alexa interior blinds.
type AlexaAdapter struct {
	base
}

// NewAlexa returns the Alexa adapter.
func NewAlexa(opts Options) *AlexaAdapter {
	return &AlexaAdapter{base: newBase(Alexa, opts)}
}

// Build returns the descriptor with an AlexaEndpoint payload.
func (a *AlexaAdapter) Build(d cloud.Device) Descriptor {
	desc := baseDescriptor(Alexa, d)
	desc.Payload = AlexaEndpoint{
		EndpointID:        desc.PlatformDeviceID,
		FriendlyName:      d.Name,
		Description:       "Motorized blind in " + desc.RoomName,
		ManufacturerName:  a.manufacturer,
		DisplayCategories: []string{AlexaCategoryInteriorBlind},
		Capabilities: []AlexaCapability{
			{
				Type:      "AlexaInterface",
				Interface: AlexaRangeController,
				Instance:  AlexaRangeInstance,
				Version:   "3",
				Properties: &AlexaProperties{
					Supported:           []AlexaPropertyName{{Name: "rangeValue"}},
					ProactivelyReported: true,
					Retrievable:         true,
				},
				Configuration: &AlexaConfiguration{
					SupportedRange: AlexaRange{MinimumValue: 0, MaximumValue: 100, Precision: 1},
					UnitOfMeasure:  AlexaUnitPercent,
				},
			},
			{
				Type:      "AlexaInterface",
				Interface: AlexaPowerController,
				Version:   "3",
				Properties: &AlexaProperties{
					Supported:           []AlexaPropertyName{{Name: "powerState"}},
					ProactivelyReported: true,
					Retrievable:         true,
				},
			},
			{
				Type:      "AlexaInterface",
				Interface: AlexaEndpointHealth,
				Version:   "3.2",
				Properties: &AlexaProperties{
					Supported:           []AlexaPropertyName{{Name: "connectivity"}},
					ProactivelyReported: true,
					Retrievable:         true,
				},
			},
			{Type: "AlexaInterface", Interface: "Alexa", Version: "3"},
		},
		Cookie: map[string]string{"cloudDeviceId": d.ID},
	}
	return desc
}

// Register publishes the endpoint document.
func (a *AlexaAdapter) Register(_ context.Context, d Descriptor) error {
	return a.register(d)
}

// PushState publishes rangeValue, powerState and connectivity.
func (a *AlexaAdapter) PushState(_ context.Context, d Descriptor, s State) error {
	return a.pushState(d, s, AlexaStateProperties(s, a.now().UTC()))
}

// AlexaStateProperties builds the context properties for a state.
// powerState is ON whenever the cover is not fully closed.
func AlexaStateProperties(s State, at time.Time) []AlexaStateProperty {
	power := "OFF"
	if s.Position > 0 {
		power = "ON"
	}
	connectivity := "UNREACHABLE"
	if s.Online {
		connectivity = "OK"
	}
	return []AlexaStateProperty{
		{Namespace: AlexaRangeController, Instance: AlexaRangeInstance, Name: "rangeValue", Value: s.Position, TimeOfSample: at},
		{Namespace: AlexaPowerController, Name: "powerState", Value: power, TimeOfSample: at},
		{Namespace: AlexaEndpointHealth, Name: "connectivity", Value: map[string]string{"value": connectivity}, TimeOfSample: at},
	}
}
