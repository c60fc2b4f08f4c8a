// Package target reads and writes ICD signals on a device under test.
//
// A Memory is either the in-process simulator (SimMemory) or a Cortex-M
// target reached over SWD through a CMSIS-DAP v2 probe (DAPMemory). Signals
// binds a mapfile.ICD to a Memory so that tests address values by name:
//
//	mem, err := target.Open(ctx, target.Options{Adapter: target.AdapterCMSISDAP})
//	if err != nil {
//		return err
//	}
//	defer mem.Close()
//
//	sigs := target.NewSignals(icd, mem)
//	speed, err := sigs.ReadUint(ctx, "motor_speed_u16")
//
// Integer signals are little-endian. DAPMemory serializes probe access, so
// a single port may be shared between goroutines.
package target
