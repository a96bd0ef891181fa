package sim

import (
	"errors"
	"fmt"

	"uiccscan/card"
	"uiccscan/hexutil"
)

// ErrDiscoveryUnavailable is returned when READ HEADER does not behave as
// the proprietary directory-walk protocol expects; the orchestrator must
// then fall back to an externally supplied file list (§6.3) or abort.
var ErrDiscoveryUnavailable = errors.New("sim: directory discovery unavailable")

// maxReadIndex guards against a runaway walk: no DF on a real UICC has this
// many children.
const maxReadIndex = 256

// frame is one entry of the walker's back-stack: the DF to return to on pop,
// and the index of the child that caused the descent (scanning resumes one
// past it). Generalizing the original two-named-variable scheme (one slot
// for "return to MF", one for "return to parent") to an arbitrary-depth
// stack is the Open Question decision recorded in DESIGN.md; it subsumes
// the two-level behavior exactly while tolerating deeper nesting.
type frame struct {
	df          string
	resumeIndex byte
}

// Walk drives the proprietary READ HEADER directory walk (§4.5) starting
// from the MF, returning every discovered path in deterministic pre-order
// (DFs before their children, siblings in ascending probe order). If the
// first READ HEADER issued does not return a recognized success or
// no-more-entries status, it returns ErrDiscoveryUnavailable and the caller
// should consult the external file list instead.
func Walk(t *Transceiver) ([]string, error) {
	const mf = "3F00"
	discovered := []string{mf}

	currentDF := mf
	readIndex := 1
	var stack []frame
	firstProbe := true

	for {
		if readIndex >= maxReadIndex {
			break
		}

		resp, err := t.ReadHeader(byte(readIndex))
		if err != nil {
			return discovered, err
		}
		isFirst := firstProbe
		firstProbe = false

		switch {
		case resp.IsOK():
			if len(resp.Data) < 2 {
				return discovered, fmt.Errorf("%w: READ HEADER success with short response", ErrDiscoveryUnavailable)
			}
			fid := hexutil.Encode(resp.Data[:2])
			path := currentDF + fid
			discovered = append(discovered, path)

			probe, err := t.SelectPathSilent(path, Generation2G)
			if err != nil {
				return discovered, fmt.Errorf("%w: type probe of %s: %v", ErrDiscoveryUnavailable, path, err)
			}

			var fileType byte
			if len(probe.Data) > 6 {
				fileType = probe.Data[6]
			}

			if fileType == 0x04 {
				if _, err := t.SelectPathSilent(currentDF, Generation2G); err != nil {
					return discovered, fmt.Errorf("%w: restoring %s after EF probe: %v", ErrDiscoveryUnavailable, currentDF, err)
				}
				readIndex++
			} else {
				stack = append(stack, frame{df: currentDF, resumeIndex: byte(readIndex)})
				currentDF = path
				readIndex = 1
			}

		case resp.SW() == card.SW_NO_MORE_ENTRIES || resp.SW() == card.SW_RECORD_NOT_FOUND:
			popped, ok := popFrame(&stack)
			if !ok {
				return discovered, nil
			}
			currentDF = popped.df
			if _, err := t.SelectPathSilent(currentDF, Generation2G); err != nil {
				return discovered, fmt.Errorf("%w: re-selecting %s on pop: %v", ErrDiscoveryUnavailable, currentDF, err)
			}
			readIndex = int(popped.resumeIndex) + 1

		default:
			if isFirst {
				return nil, fmt.Errorf("%w: READ HEADER returned SW=%04X", ErrDiscoveryUnavailable, resp.SW())
			}
			return discovered, fmt.Errorf("%w: READ HEADER returned SW=%04X mid-walk", ErrDiscoveryUnavailable, resp.SW())
		}
	}

	return discovered, nil
}

// popFrame removes and returns the top of the stack, reporting false if it
// was already empty (the walk has returned to MF with nothing left to scan).
func popFrame(stack *[]frame) (frame, bool) {
	if len(*stack) == 0 {
		return frame{}, false
	}
	top := (*stack)[len(*stack)-1]
	*stack = (*stack)[:len(*stack)-1]
	return top, true
}
