//go:build rp2040

package console

import (
	"context"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// UARTStream adapts a uartx port to the io.ReadWriter the console pump
// expects. Read blocks in RecvSomeContext, so the pump's reader goroutine
// parks in the UART driver rather than spinning.
type UARTStream struct {
	u *uartx.UART
}

// OpenUART0 configures the primary console UART. Zero baud falls back to
// the uartx default.
func OpenUART0(baud uint32, tx, rx machine.Pin) *UARTStream {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{BaudRate: baud, TX: tx, RX: rx})
	return &UARTStream{u: u}
}

func (s *UARTStream) Read(p []byte) (int, error) {
	return s.u.RecvSomeContext(context.Background(), p)
}

func (s *UARTStream) Write(p []byte) (int, error) { return s.u.Write(p) }
