package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gaborage/b2c2-cli/b2c2"
)

// flagError reports an invalid flag value.
type flagError struct {
	flag    string
	message string
}

func (e *flagError) Error() string {
	return fmt.Sprintf("invalid value for %q: %s", "--"+e.flag, e.message)
}

func invalidFlag(flag, message string) error {
	return &flagError{flag: flag, message: message}
}

func parseSide(s string) (b2c2.Side, error) {
	switch side := b2c2.Side(strings.ToLower(s)); side {
	case b2c2.SideBuy, b2c2.SideSell:
		return side, nil
	default:
		return "", invalidFlag("side", fmt.Sprintf("%q is not one of buy, sell", s))
	}
}

func parseQuantity(s string) (decimal.Decimal, error) {
	quantity, err := b2c2.ParseQuantity(s)
	if err != nil {
		return decimal.Decimal{}, invalidFlag("quantity", err.Error())
	}
	return quantity, nil
}

// confirm asks a yes/no question on out and reads the answer from in.
// Anything but y or yes, including end of input, declines.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
		}
		return false, nil
	}
}
