// Package sim provides a simulated receive pin, a manual clock and frame
// encoders for driving an rf433.Device without hardware.
//
// The encoders are the inverse of the rf433 decoders: they turn a switch
// command or sensor words into the interval sequence a real transmitter
// would produce, including the sync gaps the assembler needs.
//
//	clock := sim.NewClock()
//	pin := sim.NewPin(clock)
//	dev, _ := rf433.Init(cfg, pin, rf433.WithClock(clock))
//	dev.StartReceiving()
//	pin.Inject(sim.SwitchIntervals(cmd, sim.SwitchTiming, 2)...)
package sim
