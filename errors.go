/*
Copyright © 2024 the Alpine authors.
This file is part of Alpine.

Alpine is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Alpine is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Alpine.  If not, see <http://www.gnu.org/licenses/>.
*/

package alpine

import "fmt"

// A DomainError reports a physically invalid parameter or model state,
// such as a non-positive water density, a non-positive timestep, or a
// zero total withdrawal for a cell flagged as overdrawn. A DomainError
// aborts the step it occurred in; it is never silently corrected.
type DomainError struct {
	Op     string // the operation that failed
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("alpine: %s: %s", e.Op, e.Reason)
}

func domainErrorf(op, format string, args ...interface{}) *DomainError {
	return &DomainError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
