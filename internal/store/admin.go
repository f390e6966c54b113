package store

import "fmt"

// Disable excludes a probe from the overall status.
//
// Disabling an unknown probe is not an error: the result carries OK=false and
// a descriptive message. Disabling an already disabled probe succeeds.
func (m *MemoryStore) Disable(probeID string) ToggleResult {
	var result ToggleResult
	_ = m.WithWrite(func(s *States) error {
		if _, ok := s.Probe(probeID); !ok {
			result = ToggleResult{
				Message:  fmt.Sprintf("could not find probe %q", probeID),
				Disabled: s.DisabledIDs(),
			}
			return nil
		}

		s.Disabled[probeID] = struct{}{}
		s.RecomputeOverall()
		s.Touch(probeID)

		result = ToggleResult{OK: true, Disabled: s.DisabledIDs()}
		result.Message = fmt.Sprintf("disabled probes: %v", result.Disabled)
		return nil
	})
	return result
}

// Enable includes a disabled probe in the overall status again.
//
// Enabling a probe that is not disabled leaves the set untouched and reports
// OK=false so callers can detect the no-op.
func (m *MemoryStore) Enable(probeID string) ToggleResult {
	var result ToggleResult
	_ = m.WithWrite(func(s *States) error {
		if !s.IsDisabled(probeID) {
			result = ToggleResult{
				Message:  fmt.Sprintf("could not find disabled probe %q", probeID),
				Disabled: s.DisabledIDs(),
			}
			return nil
		}

		delete(s.Disabled, probeID)
		s.RecomputeOverall()
		s.Touch(probeID)

		result = ToggleResult{OK: true, Disabled: s.DisabledIDs()}
		result.Message = fmt.Sprintf("disabled probes: %v", result.Disabled)
		return nil
	})
	return result
}
