package sensors

import (
	"fmt"
	"sync"

	"gobot.io/x/gobot/drivers/i2c"
	"gobot.io/x/gobot/drivers/spi"
	"gobot.io/x/gobot/platforms/raspi"

	"github.com/sweeney/soil-node/internal/logic"
)

const (
	// mcp3008Max is the full-scale code of the 10-bit converter.
	mcp3008Max = 1023
	// DefaultSPISpeed is the MCP3008 clock at 3.3V supply.
	DefaultSPISpeed = 1350000
	// DefaultTMP112Address is the thermometer address with ADD0 tied to V+.
	DefaultTMP112Address = 0x49
	// DefaultBatteryInput is the MCP3008 input wired to the battery divider.
	DefaultBatteryInput = 3
	// DefaultBatteryRatio is the divider ratio in front of the battery input.
	DefaultBatteryRatio = 2.0
)

// DefaultInputs maps sensor channels to MCP3008 inputs.
func DefaultInputs() map[logic.Channel]int {
	return map[logic.Channel]int{
		logic.ChannelSoil:       0,
		logic.ChannelWaterLevel: 1,
		logic.ChannelLight:      2,
	}
}

// Board owns the Raspberry Pi adaptor and the SPI/I2C devices hanging off it.
type Board struct {
	adaptor *raspi.Adaptor
	mcp     *spi.MCP3008Driver
	tmp     i2c.Connection

	// spiMu serializes transfers; conversions are started from independent goroutines.
	spiMu sync.Mutex
	i2cMu sync.Mutex

	vref   float64
	inputs map[logic.Channel]int
}

// BoardConfig selects bus parameters.
type BoardConfig struct {
	SPISpeed      int64
	TMP112Address int
	VRef          float64
	Inputs        map[logic.Channel]int
}

// NewBoard connects the adaptor, starts the MCP3008 and opens the TMP112.
func NewBoard(cfg BoardConfig) (*Board, error) {
	a := raspi.NewAdaptor()
	if err := a.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi adaptor: %w", err)
	}

	mcp := spi.NewMCP3008Driver(a, spi.WithSpeed(cfg.SPISpeed))
	if err := mcp.Start(); err != nil {
		a.Finalize()
		return nil, fmt.Errorf("start mcp3008: %w", err)
	}

	tmp, err := a.GetConnection(cfg.TMP112Address, a.GetDefaultBus())
	if err != nil {
		mcp.Halt()
		a.Finalize()
		return nil, fmt.Errorf("open tmp112 at 0x%02x: %w", cfg.TMP112Address, err)
	}

	return &Board{
		adaptor: a,
		mcp:     mcp,
		tmp:     tmp,
		vref:    cfg.VRef,
		inputs:  cfg.Inputs,
	}, nil
}

// StartConversion reads the channel on a separate goroutine.
func (b *Board) StartConversion(ch logic.Channel, done func(volts float64, err error)) error {
	input, ok := b.inputs[ch]
	if !ok {
		return fmt.Errorf("%s: %w", ch, ErrUnknownChannel)
	}
	go func() {
		done(b.readVolts(input))
	}()
	return nil
}

func (b *Board) readVolts(input int) (float64, error) {
	b.spiMu.Lock()
	raw, err := b.mcp.Read(input)
	b.spiMu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("read mcp3008 input %d: %w", input, err)
	}
	return float64(raw) / mcp3008Max * b.vref, nil
}

// Thermometer returns the TMP112 on this board.
func (b *Board) Thermometer() Thermometer {
	return tmp112{b}
}

// Battery returns a battery reader on the given MCP3008 input behind a divider.
func (b *Board) Battery(input int, ratio float64) Battery {
	return batteryDivider{board: b, input: input, ratio: ratio}
}

// Close halts the devices and releases the adaptor.
func (b *Board) Close() error {
	var errs []error
	if err := b.tmp.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close tmp112: %w", err))
	}
	if err := b.mcp.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt mcp3008: %w", err))
	}
	if err := b.adaptor.Finalize(); err != nil {
		errs = append(errs, fmt.Errorf("finalize adaptor: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

type tmp112 struct {
	board *Board
}

// Measure reads the temperature register. The sensor is left in continuous mode
// so the register always holds a recent conversion.
func (t tmp112) Measure(done func(celsius float64, err error)) error {
	go func() {
		t.board.i2cMu.Lock()
		word, err := t.board.tmp.ReadWordData(0x00)
		t.board.i2cMu.Unlock()
		if err != nil {
			done(0, fmt.Errorf("read tmp112: %w", err))
			return
		}
		done(TMP112Celsius(word), nil)
	}()
	return nil
}

// TMP112Celsius decodes the temperature register as returned by an SMBus word
// read (low byte first).
func TMP112Celsius(word uint16) float64 {
	be := word<<8 | word>>8
	return float64(int16(be)>>4) * 0.0625
}

type batteryDivider struct {
	board *Board
	input int
	ratio float64
}

func (d batteryDivider) Measure(done func(volts float64, err error)) error {
	go func() {
		v, err := d.board.readVolts(d.input)
		if err != nil {
			done(0, fmt.Errorf("battery: %w", err))
			return
		}
		done(v*d.ratio, nil)
	}()
	return nil
}
