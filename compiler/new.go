// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package compiler

import "github.com/cockroachdb/errors"

// ErrUnknownStrategy is returned by New for a name
// that does not denote a strategy.
var ErrUnknownStrategy = errors.New("unknown compiler strategy")

// Strategy names accepted by New.
const (
	StrategyForward       = "forward"
	StrategyReverse       = "reverse"
	StrategyBidirectional = "bidirectional"
)

// New returns the strategy named by name.
func New(name string, opts Options) (Compiler, error) {
	var (
		c   Compiler
		err error
	)
	switch name {
	case StrategyForward, "":
		c, err = NewForward(opts)
	case StrategyReverse:
		c, err = NewReverse(opts)
	case StrategyBidirectional:
		c, err = NewBidirectional(opts)
	default:
		return nil, errors.Wrapf(ErrUnknownStrategy, "%q", name)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
