package domain

import "errors"

// Taxonomía de errores del run. La política de propagación es:
//   - ErrInvalidCredential y ErrInvalidSelection son fatales — abortan
//     el run completo inmediatamente.
//   - ErrPriceNotFound y ErrFinancialsNotFound son recuperables por
//     ticker — el engine excluye el ticker del snapshot y continúa.
//     Nunca llegan a la estrategia ni al report.
//   - ErrTimeout es transitorio — se expone al caller sin retry
//     automático, salvo el walkback acotado por día del client.
var (
	// ErrInvalidCredential indica que el provider rechazó la API key.
	// No tiene sentido emitir más llamadas después de verlo.
	ErrInvalidCredential = errors.New("invalid api credential")

	// ErrPriceNotFound indica que no existe precio para el ticker/fecha
	// tras agotar el walkback.
	ErrPriceNotFound = errors.New("price not found")

	// ErrFinancialsNotFound indica que el provider devolvió menos de dos
	// filings utilizables para el ticker.
	ErrFinancialsNotFound = errors.New("financials not found")

	// ErrTimeout indica que una llamada individual agotó su deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidSelection indica que la estrategia violó su contrato
	// (proporción fuera de (0,1] o suma > 1). Es un defecto de
	// programación, no una condición de datos — no se reintenta.
	ErrInvalidSelection = errors.New("invalid strategy selection")
)

// Recoverable devuelve true si el error permite excluir el ticker del
// snapshot en curso y seguir con el resto del universo.
func Recoverable(err error) bool {
	return errors.Is(err, ErrPriceNotFound) || errors.Is(err, ErrFinancialsNotFound)
}
