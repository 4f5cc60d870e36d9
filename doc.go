// Package port holds helpers for models written in Go and registered with
// the native runtime.
//
// A single-object model receives its inputs as a name→value mapping. Params
// gives typed access to that mapping, and ValidateParams binds it to a
// struct checked with validator tags:
//
//	type Inputs struct {
//		X float64 `json:"x" validate:"gte=0"`
//		Y float64 `json:"y" validate:"gte=0"`
//	}
//
//	func area(ctx context.Context, p port.Params) (float64, error) {
//		var in Inputs
//		if err := port.ValidateParams(p, &in); err != nil {
//			return 0, err
//		}
//		return in.X * in.Y, nil
//	}
package port

// Version of the model execution protocol implemented by this module.
const Version = "0.1.0"
