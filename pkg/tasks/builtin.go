package tasks

const (
	dataRoot   = "/inspire/hdd/project/robot-action/public/data"
	liberoRoot = dataRoot + "/VLA-OS-Dataset/libero"
)

var builtin = []Task{
	{
		// Local debugging. Replace camera names with the keys in your HDF5 files.
		Name:        "example_tasks",
		DatasetDirs: []string{"/inspire/hdd/global_user/wangzheng-240308120196/DexVLA/data"},
		EpisodeLen:  1000,
		CameraNames: []string{"cam_high", "cam_left_wrist", "cam_right_wrist"},
	},
	{
		Name:        "droid_mini",
		DatasetDirs: []string{dataRoot + "/droid_mini"},
		EpisodeLen:  1000,
		CameraNames: []string{"left", "right"},
	},
	{
		Name:        "libero_test",
		DatasetDirs: []string{dataRoot + "/libero_h5"},
		EpisodeLen:  400,
		CameraNames: []string{"primary"},
	},
	{
		Name:        "libero_object",
		DatasetDirs: []string{liberoRoot + "/libero_object/h5v2"},
		EpisodeLen:  400,
		CameraNames: []string{"primary"},
	},
	{
		Name:        "libero_spatial",
		DatasetDirs: []string{liberoRoot + "/libero_spatial/h5"},
		EpisodeLen:  400,
		CameraNames: []string{"primary"},
	},
	{
		Name:        "libero_goal",
		DatasetDirs: []string{liberoRoot + "/libero_goal/h5"},
		EpisodeLen:  400,
		CameraNames: []string{"primary"},
	},
	{
		Name:        "libero_10",
		DatasetDirs: []string{liberoRoot + "/libero_10/h5"},
		EpisodeLen:  400,
		CameraNames: []string{"primary"},
	},
	{
		Name: "libero_all",
		DatasetDirs: []string{
			liberoRoot + "/libero_10/h5",
			liberoRoot + "/libero_object/h5",
			liberoRoot + "/libero_goal/h5",
			liberoRoot + "/libero_spatial/h5",
		},
		EpisodeLen:  400,
		CameraNames: []string{"primary"},
	},
}
