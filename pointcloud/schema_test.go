package pointcloud

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func xyzChannels() []Channel {
	return []Channel{
		NewChannel(ChannelX, Float64, 32, 0.01),
		NewChannel(ChannelY, Float64, 32, 0.01),
		NewChannel(ChannelZ, Float64, 32, 0.01),
	}
}

func TestDataType(t *testing.T) {
	test.That(t, Uint8.ByteWidth(), test.ShouldEqual, 1)
	test.That(t, Sint16.ByteWidth(), test.ShouldEqual, 2)
	test.That(t, Float32.ByteWidth(), test.ShouldEqual, 4)
	test.That(t, Sint64.ByteWidth(), test.ShouldEqual, 8)
	test.That(t, Sint32.IsSigned(), test.ShouldBeTrue)
	test.That(t, Uint32.IsSigned(), test.ShouldBeFalse)
	test.That(t, Float64.IsFloat(), test.ShouldBeTrue)
	test.That(t, Float64.IsSigned(), test.ShouldBeTrue)
	test.That(t, Uint64.IsFloat(), test.ShouldBeFalse)
	test.That(t, Invalid.Valid(), test.ShouldBeFalse)

	for dt := range dataTypeNames {
		parsed, err := ParseDataType(dt.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, dt)
	}
	_, err := ParseDataType("COMPLEX128")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestChannel(t *testing.T) {
	c := NewChannel(ChannelIntensity, Uint16, 0, 0)
	test.That(t, c.Bits, test.ShouldEqual, 16)
	test.That(t, NewChannel(ChannelReturnNum, Uint8, 3, 0).Bits, test.ShouldEqual, 3)
	test.That(t, NewChannel(ChannelReturnNum, Uint8, 12, 0).Bits, test.ShouldEqual, 8)

	test.That(t, c.Equal(NewChannel(ChannelIntensity, Uint16, 16, 0)), test.ShouldBeTrue)
	test.That(t, c.Equal(NewChannel(ChannelIntensity, Uint16, 12, 0)), test.ShouldBeFalse)
	test.That(t, c.Equal(NewChannel(ChannelIntensity, Uint32, 16, 0)), test.ShouldBeFalse)
	test.That(t, c.Equal(NewChannel("intensity", Uint16, 16, 0)), test.ShouldBeFalse)
}

func TestSchemaBuild(t *testing.T) {
	t.Run("unique names", func(t *testing.T) {
		channels := append(xyzChannels(), NewChannel(ChannelIntensity, Uint16, 16, 0))
		schema, err := NewSchema(channels...)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, schema.Len(), test.ShouldEqual, 4)
		for i, c := range channels {
			idx, ok := schema.IndexOf(c.Name)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, idx, test.ShouldEqual, i)
		}
		_, ok := schema.IndexOf("Missing")
		test.That(t, ok, test.ShouldBeFalse)
		test.That(t, schema.HasValidXYZ(), test.ShouldBeTrue)
	})

	t.Run("duplicate name", func(t *testing.T) {
		channels := append(xyzChannels(), NewChannel(ChannelY, Float32, 0, 0))
		_, err := NewSchema(channels...)
		test.That(t, errors.Is(err, ErrDuplicateName), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, `"Y"`)
	})

	t.Run("names are case sensitive", func(t *testing.T) {
		schema, err := NewSchema(NewChannel("x", Float64, 0, 0), NewChannel("X", Float64, 0, 0))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, schema.Len(), test.ShouldEqual, 2)
	})

	t.Run("xyz must be float64", func(t *testing.T) {
		schema := MustSchema(
			NewChannel(ChannelX, Float64, 0, 0),
			NewChannel(ChannelY, Sint32, 0, 0),
			NewChannel(ChannelZ, Float64, 0, 0),
		)
		test.That(t, schema.HasValidXYZ(), test.ShouldBeFalse)
	})
}

func TestSchemaSubset(t *testing.T) {
	schema := MustSchema(append(xyzChannels(),
		NewChannel(ChannelIntensity, Uint16, 0, 0),
		NewChannel(ChannelClassID, Uint8, 0, 0))...)

	sub, err := schema.Subset(ChannelClassID, ChannelZ, ChannelX)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sub.Names(), test.ShouldResemble, []string{ChannelClassID, ChannelZ, ChannelX})
	test.That(t, sub.Channel(1).Equal(schema.Channel(2)), test.ShouldBeTrue)

	_, err = schema.Subset(ChannelX, ChannelNearInfrared)
	test.That(t, errors.Is(err, ErrUnknownChannel), test.ShouldBeTrue)

	_, err = schema.Subset(ChannelX, ChannelX)
	test.That(t, errors.Is(err, ErrDuplicateName), test.ShouldBeTrue)

	ints := schema.Filter(func(c Channel) bool { return !c.DataType.IsFloat() })
	test.That(t, ints.Names(), test.ShouldResemble, []string{ChannelIntensity, ChannelClassID})

	test.That(t, schema.Equal(MustSchema(schema.Channels()...)), test.ShouldBeTrue)
	test.That(t, schema.Equal(sub), test.ShouldBeFalse)
	test.That(t, schema.SameNames(schema.Filter(func(Channel) bool { return true })), test.ShouldBeTrue)
}
