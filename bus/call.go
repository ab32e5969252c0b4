package bus

// The helpers below issue a single request and check that the reply has the
// expected shape, so that devices need not inspect replies themselves.

func call(d Dispatcher, id DeviceID, req Message) (Message, error) {
	reply, err := d.Dispatch(id, req)
	if err != nil {
		return Message{}, err
	}
	if !reply.Answers(req) {
		return Message{}, UnexpectedReplyError{Request: req, Reply: reply}
	}
	return reply, nil
}

// ReadByteFrom reads the byte at addr from device id.
func ReadByteFrom(d Dispatcher, id DeviceID, addr uint16) (byte, error) {
	reply, err := call(d, id, ReadByte(addr))
	return reply.Value, err
}

// WriteByteTo writes v to addr on device id.
func WriteByteTo(d Dispatcher, id DeviceID, addr uint16, v byte) error {
	_, err := call(d, id, WriteByte(addr, v))
	return err
}

// ReadPortFrom reads port from device id.
func ReadPortFrom(d Dispatcher, id DeviceID, port byte) (byte, error) {
	reply, err := call(d, id, ReadPort(port))
	return reply.Value, err
}

// WritePortTo writes v to port on device id.
func WritePortTo(d Dispatcher, id DeviceID, port, v byte) error {
	_, err := call(d, id, WritePort(port, v))
	return err
}

// Signal sends a request that carries no data (Step, EnableInterrupt,
// DisableInterrupt) to device id.
func Signal(d Dispatcher, id DeviceID, req Message) error {
	_, err := call(d, id, req)
	return err
}
