package core_test

import (
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/san-kum/boxclim/internal/core"
	"github.com/san-kum/boxclim/internal/dynamo"
	"github.com/san-kum/boxclim/internal/unitval"
)

type mockDumper struct {
	*MockComponent
	dumped []core.Message
}

func (d *mockDumper) Dump(variable string, msg core.Message) error {
	d.dumped = append(d.dumped, msg)
	return nil
}

type failingResetObserver struct {
	*MockObserver
}

func (o failingResetObserver) Reset(date float64) error {
	return errors.New("truncate failed")
}

var _ = Describe("Core", func() {
	var (
		mockCtrl *gomock.Controller
		opts     core.Options
		c        *core.Core
	)

	newComp := func(name string, provides, needs, inputs []string) *MockComponent {
		m := NewMockComponent(mockCtrl)
		m.EXPECT().Name().Return(name).AnyTimes()
		m.EXPECT().Init(gomock.Any(), gomock.Any()).
			DoAndReturn(func(h core.Host, _ *slog.Logger) error {
				for _, p := range provides {
					if err := h.RegisterCapability(p, name); err != nil {
						return err
					}
				}
				for _, n := range needs {
					if err := h.RegisterDependency(n, name); err != nil {
						return err
					}
				}
				for _, in := range inputs {
					if err := h.RegisterInput(in, name); err != nil {
						return err
					}
				}
				return nil
			}).AnyTimes()
		m.EXPECT().Shutdown().Return(nil).AnyTimes()
		return m
	}

	add := func(comps ...core.Component) {
		for _, comp := range comps {
			_, err := c.AddComponent(comp)
			Expect(err).NotTo(HaveOccurred())
		}
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		opts = core.Options{StartDate: 1745, EndDate: 1760, DoSpinup: false, MaxSpinup: 10}
	})

	JustBeforeEach(func() {
		c = core.New(opts, slog.New(slog.NewTextHandler(GinkgoWriter, nil)), nil)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("registration", func() {
		It("should refuse messages before initialization", func() {
			_, err := c.SendMessage(core.KindGet, "atmos_co2", core.Now())
			Expect(err).To(MatchError(dynamo.ErrNotInitialized))
		})

		It("should reject duplicate component names", func() {
			add(newComp("ocean", nil, nil, nil))
			_, err := c.AddComponent(newComp("ocean", nil, nil, nil))
			Expect(err).To(MatchError(dynamo.ErrDuplicateName))
		})

		It("should freeze registries after init", func() {
			add(newComp("ocean", []string{"atmos_co2"}, nil, nil))
			Expect(c.Init()).To(Succeed())
			Expect(c.State()).To(Equal(core.StateInitialized))

			Expect(c.RegisterCapability("sst", "ocean")).To(MatchError(dynamo.ErrRegistryFrozen))
			Expect(c.RegisterDependency("sst", "ocean")).To(MatchError(dynamo.ErrRegistryFrozen))
			Expect(c.RegisterInput("sst", "ocean")).To(MatchError(dynamo.ErrRegistryFrozen))

			_, err := c.AddComponent(newComp("late", nil, nil, nil))
			Expect(err).To(MatchError(dynamo.ErrRegistryFrozen))
		})

		It("should keep the first owner of a duplicated capability", func() {
			a := newComp("a", []string{"sst"}, nil, nil)
			b := newComp("b", []string{"sst"}, nil, nil)
			add(a, b)
			Expect(c.Init()).To(Succeed())

			a.EXPECT().GetData("sst", gomock.Any()).Return(unitval.New(0.5, unitval.DegC), nil)
			v, err := c.SendMessage(core.KindGet, "sst", core.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(v.V).To(Equal(0.5))
		})
	})

	Context("execution order", func() {
		It("should place providers before dependents regardless of registration order", func() {
			temp := newComp("temperature", []string{"sst"}, []string{"ffi_emissions"}, nil)
			ocean := newComp("ocean", []string{"atmos_co2"}, []string{"sst", "ffi_emissions"}, nil)
			emis := newComp("emissions", []string{"ffi_emissions"}, nil, nil)
			extra := newComp("aaa_standalone", nil, nil, nil)
			add(ocean, temp, extra, emis)

			for _, m := range []*MockComponent{temp, ocean, emis, extra} {
				m.EXPECT().PrepareToRun().Return(nil)
			}
			Expect(c.Init()).To(Succeed())
			Expect(c.PrepareToRun()).To(Succeed())

			Expect(c.Order()).To(Equal([]string{"aaa_standalone", "emissions", "temperature", "ocean"}))
		})

		It("should fail on a dependency cycle", func() {
			add(
				newComp("a", []string{"x"}, []string{"y"}, nil),
				newComp("b", []string{"y"}, []string{"x"}, nil),
			)
			Expect(c.Init()).To(Succeed())

			err := c.PrepareToRun()
			Expect(err).To(MatchError(dynamo.ErrCyclicDependency))
			Expect(dynamo.Classify(err)).To(Equal(dynamo.ClassConfig))
		})

		It("should tolerate an unresolved dependency", func() {
			ocean := newComp("ocean", nil, []string{"missing"}, nil)
			ocean.EXPECT().PrepareToRun().Return(nil)
			add(ocean)
			Expect(c.Init()).To(Succeed())
			Expect(c.PrepareToRun()).To(Succeed())
			Expect(c.Order()).To(Equal([]string{"ocean"}))
		})

		It("should prepare only once", func() {
			ocean := newComp("ocean", nil, nil, nil)
			ocean.EXPECT().PrepareToRun().Return(nil).Times(1)
			add(ocean)
			Expect(c.Init()).To(Succeed())
			Expect(c.PrepareToRun()).To(Succeed())
			Expect(c.PrepareToRun()).To(Succeed())
			Expect(c.State()).To(Equal(core.StatePrepared))
		})

		It("should drop disabled components from every registry", func() {
			ocean := newComp("ocean", []string{"atmos_co2"}, []string{"sst"}, nil)
			temp := newComp("temperature", []string{"sst"}, nil, []string{"atmos_co2"})
			ocean.EXPECT().PrepareToRun().Return(nil)
			add(ocean, temp)
			Expect(c.Init()).To(Succeed())

			Expect(c.SetData("temperature", core.VarEnabled, core.Value(unitval.New(0, unitval.Unitless)))).To(Succeed())
			Expect(c.PrepareToRun()).To(Succeed())

			Expect(c.Order()).To(Equal([]string{"ocean"}))
			Expect(c.CheckCapability("sst")).To(BeFalse())
			_, err := c.SendMessage(core.KindSet, "atmos_co2", core.Value(unitval.New(300, unitval.PPMVCO2)))
			Expect(err).To(MatchError(dynamo.ErrUnknownCapability))
		})
	})

	Context("messages", func() {
		var ocean, temp *MockComponent

		JustBeforeEach(func() {
			ocean = newComp("ocean", []string{"atmos_co2"}, nil, []string{"sst"})
			temp = newComp("temperature", []string{"sst"}, nil, []string{"sst"})
			add(ocean, temp)
			Expect(c.Init()).To(Succeed())
		})

		It("should route GET to the capability owner", func() {
			ocean.EXPECT().GetData("atmos_co2", core.At(1800)).Return(unitval.New(283, unitval.PPMVCO2), nil)

			v, err := c.SendMessage(core.KindGet, "atmos_co2", core.At(1800))
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(unitval.New(283, unitval.PPMVCO2)))
		})

		It("should fan SET out to every input", func() {
			msg := core.ValueAt(1800, unitval.New(1.2, unitval.DegC))
			ocean.EXPECT().SetData("sst", msg).Return(nil)
			temp.EXPECT().SetData("sst", msg).Return(nil)

			_, err := c.SendMessage(core.KindSet, "sst", msg)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should fail on an unknown capability", func() {
			_, err := c.SendMessage(core.KindGet, "nope", core.Now())
			Expect(err).To(MatchError(dynamo.ErrUnknownCapability))
			Expect(err.Error()).To(ContainSubstring("nope"))
		})

		It("should fail on an unknown message kind", func() {
			_, err := c.SendMessage(core.Kind(42), "atmos_co2", core.Now())
			Expect(err).To(MatchError(dynamo.ErrUnknownMessage))
		})

		It("should refuse DUMP for components that cannot take one", func() {
			_, err := c.SendMessage(core.KindDump, "atmos_co2", core.Value(unitval.New(10, unitval.PgC)))
			Expect(err).To(MatchError(dynamo.ErrUnknownMessage))
		})

		It("should decorate component errors with the variable once", func() {
			ocean.EXPECT().GetData("atmos_co2", gomock.Any()).
				Return(unitval.Value{}, dynamo.WithVariable("ocean", "atmos_co2", dynamo.ErrMalformedValue))

			_, err := c.SendMessage(core.KindGet, "atmos_co2", core.Now())
			Expect(err).To(MatchError(dynamo.ErrMalformedValue))
			Expect(err.Error()).To(Equal("ocean.atmos_co2: dynamo: malformed value"))
		})

		It("should pass configuration through to the component", func() {
			msg := core.Value(unitval.New(7, unitval.MPerSec))
			ocean.EXPECT().SetData("wind", msg).Return(errors.New("bad wind"))

			err := c.SetData("ocean", "wind", msg)
			Expect(err).To(MatchError(ContainSubstring("ocean.wind: bad wind")))
		})

		It("should reject settings for unknown components", func() {
			err := c.SetData("glacier", "area", core.Now())
			Expect(err).To(MatchError(dynamo.ErrUnknownComponent))
		})
	})

	Context("dump", func() {
		It("should hand DUMP to a Dumper", func() {
			inner := newComp("ocean", []string{"ocean_c_do"}, nil, nil)
			d := &mockDumper{MockComponent: inner}
			add(d)
			Expect(c.Init()).To(Succeed())

			_, err := c.SendMessage(core.KindDump, "ocean_c_do", core.Value(unitval.New(10, unitval.PgC)))
			Expect(err).NotTo(HaveOccurred())
			Expect(d.dumped).To(HaveLen(1))
			Expect(d.dumped[0].Value.V).To(Equal(10.0))
		})
	})

	Context("spinup", func() {
		BeforeEach(func() {
			opts.DoSpinup = true
		})

		It("should step until every component converges and visit observers", func() {
			slow := newComp("slow", nil, nil, nil)
			fast := newComp("fast", nil, nil, nil)
			obs := NewMockObserver(mockCtrl)
			add(slow, fast)
			c.AddObserver(obs)

			slow.EXPECT().PrepareToRun().Return(nil)
			fast.EXPECT().PrepareToRun().Return(nil)
			slow.EXPECT().RunSpinup(gomock.Any()).
				DoAndReturn(func(step int) (bool, error) { return step >= 3, nil }).Times(3)
			fast.EXPECT().RunSpinup(gomock.Any()).Return(true, nil).Times(3)
			obs.EXPECT().ShouldVisit(true, gomock.Any()).Return(true).Times(3)
			obs.EXPECT().Visit(gomock.Any()).Return(nil).Times(6)

			Expect(c.Init()).To(Succeed())
			Expect(c.PrepareToRun()).To(Succeed())
			Expect(c.SpunUp()).To(BeTrue())
			Expect(c.InSpinup()).To(BeFalse())
		})

		It("should stop at the cap without failing", func() {
			stuck := newComp("stuck", nil, nil, nil)
			add(stuck)
			stuck.EXPECT().PrepareToRun().Return(nil)
			stuck.EXPECT().RunSpinup(gomock.Any()).Return(false, nil).Times(opts.MaxSpinup)

			Expect(c.Init()).To(Succeed())
			Expect(c.PrepareToRun()).To(Succeed())
			Expect(c.SpunUp()).To(BeFalse())
		})

		It("should propagate integration faults", func() {
			bad := newComp("bad", nil, nil, nil)
			add(bad)
			bad.EXPECT().PrepareToRun().Return(nil)
			bad.EXPECT().RunSpinup(1).Return(false, dynamo.ErrRetryExhausted)

			Expect(c.Init()).To(Succeed())
			err := c.PrepareToRun()
			Expect(err).To(MatchError(dynamo.ErrRetryExhausted))
			Expect(dynamo.Classify(err)).To(Equal(dynamo.ClassIntegration))
		})
	})

	Context("run and reset", func() {
		var a, b *MockComponent
		var obs *MockObserver

		JustBeforeEach(func() {
			a = newComp("a", []string{"x"}, nil, nil)
			b = newComp("b", nil, []string{"x"}, nil)
			obs = NewMockObserver(mockCtrl)
			add(b, a)
			c.AddObserver(obs)
			a.EXPECT().PrepareToRun().Return(nil)
			b.EXPECT().PrepareToRun().Return(nil)
			Expect(c.Init()).To(Succeed())
		})

		It("should run each year in order and visit observers", func() {
			gomock.InOrder(
				a.EXPECT().Run(1746.0).Return(nil),
				b.EXPECT().Run(1746.0).Return(nil),
				a.EXPECT().Run(1747.0).Return(nil),
				b.EXPECT().Run(1747.0).Return(nil),
			)
			obs.EXPECT().ShouldVisit(false, 1746.0).Return(true)
			obs.EXPECT().ShouldVisit(false, 1747.0).Return(false)
			obs.EXPECT().Visit(a).Return(nil)
			obs.EXPECT().Visit(b).Return(nil)

			Expect(c.Run(1747)).To(Succeed())
			Expect(c.LastDate()).To(Equal(1747.0))
			Expect(c.State()).To(Equal(core.StateRunning))
		})

		It("should clamp to the end date", func() {
			a.EXPECT().Run(gomock.Any()).Return(nil).Times(15)
			b.EXPECT().Run(gomock.Any()).Return(nil).Times(15)
			obs.EXPECT().ShouldVisit(false, gomock.Any()).Return(false).Times(15)

			Expect(c.Run(1900)).To(Succeed())
			Expect(c.LastDate()).To(Equal(1760.0))
		})

		It("should treat a non-advancing run as a no-op", func() {
			Expect(c.Run(1745)).To(Succeed())
			Expect(c.LastDate()).To(Equal(1745.0))
		})

		It("should skip observers for components whose output is off", func() {
			Expect(c.SetData("b", core.VarOutput, core.Value(unitval.New(0, unitval.Unitless)))).To(Succeed())
			a.EXPECT().Run(1746.0).Return(nil)
			b.EXPECT().Run(1746.0).Return(nil)
			obs.EXPECT().ShouldVisit(false, 1746.0).Return(true)
			obs.EXPECT().Visit(a).Return(nil)

			Expect(c.Run(1746)).To(Succeed())
			Expect(c.OutputEnabled("b")).To(BeFalse())
		})

		It("should roll back and resume from the reset date", func() {
			a.EXPECT().Run(gomock.Any()).Return(nil).Times(5 + 2)
			b.EXPECT().Run(gomock.Any()).Return(nil).Times(5 + 2)
			obs.EXPECT().ShouldVisit(false, gomock.Any()).Return(false).AnyTimes()
			a.EXPECT().Reset(1748.0).Return(nil)
			b.EXPECT().Reset(1748.0).Return(nil)

			Expect(c.Run(1750)).To(Succeed())
			Expect(c.Reset(1748)).To(Succeed())
			Expect(c.State()).To(Equal(core.StatePrepared))
			Expect(c.LastDate()).To(Equal(1748.0))
			Expect(c.Run(1750)).To(Succeed())
		})

		It("should report an observer that fails to reset", func() {
			a.EXPECT().Run(gomock.Any()).Return(nil).Times(3)
			b.EXPECT().Run(gomock.Any()).Return(nil).Times(3)
			obs.EXPECT().ShouldVisit(false, gomock.Any()).Return(false).AnyTimes()
			a.EXPECT().Reset(1746.0).Return(nil)
			b.EXPECT().Reset(1746.0).Return(nil)
			bad := NewMockObserver(mockCtrl)
			bad.EXPECT().ShouldVisit(false, gomock.Any()).Return(false).AnyTimes()
			c.AddObserver(failingResetObserver{bad})

			Expect(c.Run(1748)).To(Succeed())
			Expect(c.Reset(1746)).To(MatchError(ContainSubstring("truncate failed")))
		})

		It("should refuse to reset forward", func() {
			Expect(c.PrepareToRun()).To(Succeed())
			Expect(c.Reset(1800)).To(MatchError(dynamo.ErrInvalidDate))
		})

		It("should return to the start when reset before it", func() {
			a.EXPECT().Run(gomock.Any()).Return(nil).Times(3)
			b.EXPECT().Run(gomock.Any()).Return(nil).Times(3)
			obs.EXPECT().ShouldVisit(false, gomock.Any()).Return(false).AnyTimes()
			a.EXPECT().Reset(1700.0).Return(nil)
			b.EXPECT().Reset(1700.0).Return(nil)

			Expect(c.Run(1748)).To(Succeed())
			Expect(c.Reset(1700)).To(Succeed())
			Expect(c.LastDate()).To(Equal(1745.0))
		})

		It("should shut every component down once", func() {
			Expect(c.PrepareToRun()).To(Succeed())
			Expect(c.Shutdown()).To(Succeed())
			Expect(c.State()).To(Equal(core.StateShutDown))
			Expect(c.Shutdown()).To(Succeed())
			Expect(c.Run(1750)).To(MatchError(dynamo.ErrNotInitialized))
		})
	})

	Context("reset with spinup", func() {
		BeforeEach(func() {
			opts.DoSpinup = true
		})

		It("should repeat spinup when reset before the start", func() {
			m := newComp("m", nil, nil, nil)
			add(m)
			m.EXPECT().PrepareToRun().Return(nil)
			m.EXPECT().RunSpinup(gomock.Any()).Return(true, nil).Times(2)
			m.EXPECT().Run(1746.0).Return(nil)
			m.EXPECT().Reset(1744.0).Return(nil)

			Expect(c.Init()).To(Succeed())
			Expect(c.Run(1746)).To(Succeed())
			Expect(c.Reset(1744)).To(Succeed())
			Expect(c.SpunUp()).To(BeTrue())
			Expect(c.LastDate()).To(Equal(1745.0))
		})
	})
})
