package dispatcher

// Commands raised by the simulation world.
const (
	CmdVehicleEnter = ":VEHICLE:ENTER:"
	CmdVehicleExit  = ":VEHICLE:EXIT:"
	CmdVehicleState = ":VEHICLE:STATE:"
	CmdZoneState    = ":ZONE:STATE:"
	CmdZoneTransfer = ":ZONE:TRANSFER:"
)
