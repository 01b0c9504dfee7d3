// Package core owns the components of a run, resolves their capability
// dependencies into an execution order and drives spin-up, yearly runs and
// message routing.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/san-kum/boxclim/internal/dynamo"
	"github.com/san-kum/boxclim/internal/unitval"
)

type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StatePrepared
	StateRunning
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StatePrepared:
		return "prepared"
	case StateRunning:
		return "running"
	case StateShutDown:
		return "shut down"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Options struct {
	StartDate float64
	EndDate   float64
	DoSpinup  bool
	MaxSpinup int
}

func DefaultOptions() Options {
	return Options{StartDate: 1745, EndDate: 2300, DoSpinup: true, MaxSpinup: 2000}
}

func (o Options) Validate() error {
	if o.EndDate <= o.StartDate {
		return fmt.Errorf("%w: end date %g not after start date %g", dynamo.ErrInvalidDate, o.EndDate, o.StartDate)
	}
	if o.StartDate != math.Trunc(o.StartDate) || o.EndDate != math.Trunc(o.EndDate) {
		return fmt.Errorf("%w: run dates must be whole years", dynamo.ErrInvalidDate)
	}
	if o.MaxSpinup < 1 {
		return fmt.Errorf("%w: max spinup steps %d", dynamo.ErrParameterBounds, o.MaxSpinup)
	}
	return nil
}

// Handle indexes a component in the core's arena.
type Handle int

type entry struct {
	comp    Component
	enabled bool
	output  bool
	removed bool
}

type dependency struct {
	dependent  Handle
	capability string
}

// Core is single-threaded. Registries are written only before Init returns.
type Core struct {
	opts Options
	log  *slog.Logger
	logs LogOpener

	entries      []entry
	byName       map[string]Handle
	capabilities map[string]Handle
	inputs       map[string][]Handle
	dependencies []dependency

	order     []Handle
	observers []Observer

	state    State
	lastDate float64
	inSpinup bool
	spunUp   bool
}

// New creates a core. logs may be nil, in which case components log through
// logger.
func New(opts Options, logger *slog.Logger, logs LogOpener) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	return &Core{
		opts:         opts,
		log:          logger,
		logs:         logs,
		byName:       make(map[string]Handle),
		capabilities: make(map[string]Handle),
		inputs:       make(map[string][]Handle),
		lastDate:     opts.StartDate,
	}
}

func (c *Core) State() State       { return c.state }
func (c *Core) Options() Options   { return c.opts }
func (c *Core) LastDate() float64  { return c.lastDate }
func (c *Core) InSpinup() bool     { return c.inSpinup }
func (c *Core) SpunUp() bool       { return c.spunUp }
func (c *Core) frozen() bool       { return c.state >= StateInitialized }
func (c *Core) live(h Handle) bool { return !c.entries[h].removed }

// AddComponent hands ownership of comp to the core.
func (c *Core) AddComponent(comp Component) (Handle, error) {
	if c.frozen() {
		return -1, fmt.Errorf("%w: add component %q", dynamo.ErrRegistryFrozen, comp.Name())
	}
	name := comp.Name()
	if _, ok := c.byName[name]; ok {
		return -1, fmt.Errorf("%w: %q", dynamo.ErrDuplicateName, name)
	}
	h := Handle(len(c.entries))
	c.entries = append(c.entries, entry{comp: comp, enabled: true, output: true})
	c.byName[name] = h
	return h, nil
}

func (c *Core) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

func (c *Core) handle(name string) (Handle, error) {
	h, ok := c.byName[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", dynamo.ErrUnknownComponent, name)
	}
	return h, nil
}

// Component looks up a component by name.
func (c *Core) Component(name string) (Component, bool) {
	h, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.entries[h].comp, true
}

// Components returns the live components, in execution order once prepared.
func (c *Core) Components() []Component {
	var out []Component
	if c.order != nil {
		for _, h := range c.order {
			out = append(out, c.entries[h].comp)
		}
		return out
	}
	for h := range c.entries {
		if c.live(Handle(h)) {
			out = append(out, c.entries[h].comp)
		}
	}
	return out
}

// Order names the components in execution order.
func (c *Core) Order() []string {
	names := make([]string, len(c.order))
	for i, h := range c.order {
		names[i] = c.entries[h].comp.Name()
	}
	return names
}

// OutputEnabled reports whether observers should record name.
func (c *Core) OutputEnabled(name string) bool {
	h, ok := c.byName[name]
	return ok && c.entries[h].output
}

func (c *Core) RegisterCapability(capability, owner string) error {
	if c.frozen() {
		return fmt.Errorf("%w: capability %q", dynamo.ErrRegistryFrozen, capability)
	}
	h, err := c.handle(owner)
	if err != nil {
		return err
	}
	if prev, ok := c.capabilities[capability]; ok && prev != h {
		c.log.Warn("duplicate capability, keeping first owner",
			"capability", capability,
			"owner", c.entries[prev].comp.Name(),
			"ignored", owner)
		return nil
	}
	c.capabilities[capability] = h
	return nil
}

func (c *Core) RegisterDependency(capability, dependent string) error {
	if c.frozen() {
		return fmt.Errorf("%w: dependency %q", dynamo.ErrRegistryFrozen, capability)
	}
	h, err := c.handle(dependent)
	if err != nil {
		return err
	}
	c.dependencies = append(c.dependencies, dependency{dependent: h, capability: capability})
	return nil
}

func (c *Core) RegisterInput(name, component string) error {
	if c.frozen() {
		return fmt.Errorf("%w: input %q", dynamo.ErrRegistryFrozen, name)
	}
	h, err := c.handle(component)
	if err != nil {
		return err
	}
	for _, existing := range c.inputs[name] {
		if existing == h {
			return nil
		}
	}
	c.inputs[name] = append(c.inputs[name], h)
	return nil
}

// CheckCapability reports whether name has an owner.
func (c *Core) CheckCapability(name string) bool {
	_, ok := c.capabilities[name]
	return ok
}

// Init initializes components in registration order. Each receives its own
// logger; registration closes when Init returns.
func (c *Core) Init() error {
	if c.state != StateUninitialized {
		return fmt.Errorf("%w: init in state %s", dynamo.ErrRegistryFrozen, c.state)
	}
	if err := c.opts.Validate(); err != nil {
		return err
	}
	for h := range c.entries {
		comp := c.entries[h].comp
		log, err := c.componentLogger(comp.Name())
		if err != nil {
			return err
		}
		if err := comp.Init(c, log); err != nil {
			return fmt.Errorf("init %s: %w", comp.Name(), err)
		}
	}
	c.state = StateInitialized
	c.log.Info("core initialized", "components", len(c.entries), "capabilities", len(c.capabilities))
	return nil
}

func (c *Core) componentLogger(name string) (*slog.Logger, error) {
	if c.logs == nil {
		return c.log.With("component", name), nil
	}
	return c.logs.Open(name)
}

// SetData applies one configuration tuple. The reserved variables enabled and
// output are handled here; everything else goes to the component.
func (c *Core) SetData(component, variable string, msg Message) error {
	if !c.frozen() {
		return fmt.Errorf("%w: set %s.%s", dynamo.ErrNotInitialized, component, variable)
	}
	h, err := c.handle(component)
	if err != nil {
		return dynamo.WithVariable(component, variable, err)
	}
	e := &c.entries[h]
	switch variable {
	case VarEnabled:
		if c.state >= StatePrepared && e.enabled != (msg.Value.V != 0) {
			return dynamo.WithVariable(component, variable,
				fmt.Errorf("%w: components cannot be toggled after preparation", dynamo.ErrRegistryFrozen))
		}
		e.enabled = msg.Value.V != 0
		return nil
	case VarOutput:
		e.output = msg.Value.V != 0
		return nil
	}
	return dynamo.WithVariable(component, variable, e.comp.SetData(variable, msg))
}

// GetData reads a variable straight from a named component.
func (c *Core) GetData(component, variable string, msg Message) (unitval.Value, error) {
	if !c.frozen() {
		return unitval.Value{}, fmt.Errorf("%w: get %s.%s", dynamo.ErrNotInitialized, component, variable)
	}
	h, err := c.handle(component)
	if err != nil {
		return unitval.Value{}, dynamo.WithVariable(component, variable, err)
	}
	v, err := c.entries[h].comp.GetData(variable, msg)
	return v, dynamo.WithVariable(component, variable, err)
}

// SendMessage routes a message by capability name. GET and DUMP go to the
// capability's owner; SET goes to every component accepting name as input.
func (c *Core) SendMessage(kind Kind, name string, msg Message) (unitval.Value, error) {
	if !c.frozen() {
		return unitval.Value{}, fmt.Errorf("%w: %s %s", dynamo.ErrNotInitialized, kind, name)
	}

	switch kind {
	case KindGet:
		h, ok := c.capabilities[name]
		if !ok {
			return unitval.Value{}, dynamo.WithVariable("", name, dynamo.ErrUnknownCapability)
		}
		comp := c.entries[h].comp
		v, err := comp.GetData(name, msg)
		return v, dynamo.WithVariable(comp.Name(), name, err)

	case KindSet:
		targets := c.inputs[name]
		if len(targets) == 0 {
			return unitval.Value{}, dynamo.WithVariable("", name, dynamo.ErrUnknownCapability)
		}
		for _, h := range targets {
			comp := c.entries[h].comp
			if err := comp.SetData(name, msg); err != nil {
				return unitval.Value{}, dynamo.WithVariable(comp.Name(), name, err)
			}
		}
		return msg.Value, nil

	case KindDump:
		h, ok := c.capabilities[name]
		if !ok {
			return unitval.Value{}, dynamo.WithVariable("", name, dynamo.ErrUnknownCapability)
		}
		comp := c.entries[h].comp
		d, ok := comp.(Dumper)
		if !ok {
			return unitval.Value{}, dynamo.WithVariable(comp.Name(), name,
				fmt.Errorf("%w: %s does not accept DUMP", dynamo.ErrUnknownMessage, comp.Name()))
		}
		return msg.Value, dynamo.WithVariable(comp.Name(), name, d.Dump(name, msg))
	}

	return unitval.Value{}, dynamo.WithVariable("", name, fmt.Errorf("%w: %s", dynamo.ErrUnknownMessage, kind))
}

// removeDisabled drops administratively disabled components from every
// registry.
func (c *Core) removeDisabled() {
	for h := range c.entries {
		e := &c.entries[h]
		if e.enabled || e.removed {
			continue
		}
		e.removed = true
		c.log.Warn("component disabled", "component", e.comp.Name())
	}

	for name, h := range c.capabilities {
		if !c.live(h) {
			delete(c.capabilities, name)
		}
	}
	for name, hs := range c.inputs {
		kept := hs[:0]
		for _, h := range hs {
			if c.live(h) {
				kept = append(kept, h)
			}
		}
		if len(kept) == 0 {
			delete(c.inputs, name)
		} else {
			c.inputs[name] = kept
		}
	}
	deps := c.dependencies[:0]
	for _, d := range c.dependencies {
		if c.live(d.dependent) {
			deps = append(deps, d)
		}
	}
	c.dependencies = deps
}

func (c *Core) buildOrder() error {
	var nodes []string
	for h := range c.entries {
		if c.live(Handle(h)) {
			nodes = append(nodes, c.entries[h].comp.Name())
		}
	}

	edges := make(map[string][]string)
	for _, d := range c.dependencies {
		dependent := c.entries[d.dependent].comp.Name()
		owner, ok := c.capabilities[d.capability]
		if !ok {
			c.log.Error("unresolved dependency", "component", dependent, "capability", d.capability)
			continue
		}
		if owner == d.dependent {
			continue
		}
		from := c.entries[owner].comp.Name()
		edges[from] = append(edges[from], dependent)
	}

	names, err := topoSort(nodes, edges)
	if err != nil {
		return err
	}
	c.order = make([]Handle, len(names))
	for i, n := range names {
		c.order[i] = c.byName[n]
	}
	c.log.Debug("execution order resolved", "order", names)
	return nil
}

// PrepareToRun resolves the execution order, prepares every component and
// runs spin-up when enabled. Repeat calls do nothing.
func (c *Core) PrepareToRun() error {
	switch c.state {
	case StateUninitialized:
		return fmt.Errorf("%w: prepare", dynamo.ErrNotInitialized)
	case StateShutDown:
		return fmt.Errorf("%w: core is shut down", dynamo.ErrNotInitialized)
	case StatePrepared, StateRunning:
		return nil
	}

	c.removeDisabled()
	if err := c.buildOrder(); err != nil {
		return err
	}
	for _, h := range c.order {
		comp := c.entries[h].comp
		if err := comp.PrepareToRun(); err != nil {
			return fmt.Errorf("prepare %s: %w", comp.Name(), err)
		}
	}
	c.state = StatePrepared
	c.lastDate = c.opts.StartDate

	if c.opts.DoSpinup {
		return c.runSpinup()
	}
	return nil
}

func (c *Core) runSpinup() error {
	c.inSpinup = true
	defer func() { c.inSpinup = false }()

	for step := 1; step <= c.opts.MaxSpinup; step++ {
		all := true
		for _, h := range c.order {
			comp := c.entries[h].comp
			done, err := comp.RunSpinup(step)
			if err != nil {
				return fmt.Errorf("spinup step %d, %s: %w", step, comp.Name(), err)
			}
			all = all && done
		}
		if err := c.visit(true, float64(step)); err != nil {
			return err
		}
		if all {
			c.spunUp = true
			c.log.Info("spinup complete", "steps", step)
			return nil
		}
	}
	c.log.Warn("spinup did not converge", "max_steps", c.opts.MaxSpinup)
	return nil
}

func (c *Core) visit(inSpinup bool, date float64) error {
	for _, o := range c.observers {
		if !o.ShouldVisit(inSpinup, date) {
			continue
		}
		for _, h := range c.order {
			e := c.entries[h]
			if !e.output {
				continue
			}
			if err := o.Visit(e.comp); err != nil {
				return fmt.Errorf("visit %s at %g: %w", e.comp.Name(), date, err)
			}
		}
	}
	return nil
}

// Run advances all components a year at a time up to toDate.
func (c *Core) Run(toDate float64) error {
	switch c.state {
	case StateUninitialized, StateShutDown:
		return fmt.Errorf("%w: run in state %s", dynamo.ErrNotInitialized, c.state)
	case StateInitialized:
		if err := c.PrepareToRun(); err != nil {
			return err
		}
	}

	if toDate > c.opts.EndDate {
		c.log.Warn("run date past end date, clamping", "requested", toDate, "end", c.opts.EndDate)
		toDate = c.opts.EndDate
	}
	if toDate <= c.lastDate {
		c.log.Warn("run does not advance", "requested", toDate, "last", c.lastDate)
		return nil
	}

	c.state = StateRunning
	for date := c.lastDate + 1; date <= toDate; date++ {
		for _, h := range c.order {
			comp := c.entries[h].comp
			if err := comp.Run(date); err != nil {
				return fmt.Errorf("run %s at %g: %w", comp.Name(), date, err)
			}
		}
		c.lastDate = date
		if err := c.visit(false, date); err != nil {
			return err
		}
	}
	return nil
}

// Reset rolls every component back to toDate. Dates before the run start
// restore the pre-spin-up state and repeat spin-up if it is enabled.
func (c *Core) Reset(toDate float64) error {
	if c.state < StatePrepared || c.state == StateShutDown {
		return fmt.Errorf("%w: reset in state %s", dynamo.ErrNotInitialized, c.state)
	}
	if toDate > c.lastDate {
		return fmt.Errorf("%w: cannot reset forward to %g from %g", dynamo.ErrInvalidDate, toDate, c.lastDate)
	}
	if toDate != math.Trunc(toDate) {
		return fmt.Errorf("%w: reset date %g is not a whole year", dynamo.ErrInvalidDate, toDate)
	}

	for _, h := range c.order {
		comp := c.entries[h].comp
		if err := comp.Reset(toDate); err != nil {
			return fmt.Errorf("reset %s to %g: %w", comp.Name(), toDate, err)
		}
	}
	for _, o := range c.observers {
		if r, ok := o.(ResettableObserver); ok {
			if err := r.Reset(toDate); err != nil {
				return fmt.Errorf("reset observer to %g: %w", toDate, err)
			}
		}
	}

	c.state = StatePrepared
	if toDate >= c.opts.StartDate {
		c.lastDate = toDate
		c.log.Info("core reset", "date", toDate)
		return nil
	}

	c.lastDate = c.opts.StartDate
	c.spunUp = false
	c.log.Info("core reset before start", "date", toDate, "spinup", c.opts.DoSpinup)
	if c.opts.DoSpinup {
		return c.runSpinup()
	}
	return nil
}

// Shutdown shuts every component down and closes the log sinks.
func (c *Core) Shutdown() error {
	if c.state == StateShutDown {
		return nil
	}
	var errs []error
	for h := range c.entries {
		if err := c.entries[h].comp.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", c.entries[h].comp.Name(), err))
		}
	}
	if c.logs != nil {
		if err := c.logs.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.state = StateShutDown
	return errors.Join(errs...)
}

// Capabilities lists every registered capability and its owner, sorted by
// capability name.
func (c *Core) Capabilities() [][2]string {
	out := make([][2]string, 0, len(c.capabilities))
	for name, h := range c.capabilities {
		out = append(out, [2]string{name, c.entries[h].comp.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
