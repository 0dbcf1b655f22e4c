package mdp

// templates holds the .mdp bodies. The steep-descent files (ions,
// minim) take no parameters beyond their fixed step cap; the dynamics
// files interpolate step counts, timestep, and coupling targets.
var templates = map[string]string{
	"ions": `; ions.mdp - for ion addition
integrator  = steep
emtol       = 1000.0
emstep      = 0.01
nsteps      = {{.NSteps}}
nstlist     = 1
cutoff-scheme = Verlet
ns_type     = grid
coulombtype = cutoff
rcoulomb    = 1.0
rvdw        = 1.0
pbc         = xyz
`,

	"minim": `; minim.mdp - Energy Minimization
integrator  = steep
emtol       = 1000.0
emstep      = 0.01
nsteps      = {{.NSteps}}
nstlist     = 1
cutoff-scheme = Verlet
ns_type     = grid
coulombtype = PME
rcoulomb    = 1.0
rvdw        = 1.0
pbc         = xyz
`,

	"nvt": `; nvt.mdp - NVT Equilibration
define      = -DPOSRES
integrator  = md
nsteps      = {{.NSteps}}
dt          = {{.DT}}
nstxout     = 500
nstvout     = 500
nstenergy   = 500
nstlog      = 500
continuation = no
constraint_algorithm = lincs
constraints = h-bonds
lincs_iter  = 1
lincs_order = 4
cutoff-scheme = Verlet
ns_type     = grid
nstlist     = 10
rcoulomb    = 1.0
rvdw        = 1.0
coulombtype = PME
pme_order   = 4
fourierspacing = 0.16
tcoupl      = V-rescale
tc-grps     = System
tau_t       = 0.1
ref_t       = {{.Temperature}}
pcoupl      = no
pbc         = xyz
DispCorr    = EnerPres
gen_vel     = yes
gen_temp    = {{.Temperature}}
gen_seed    = -1
`,

	"npt": `; npt.mdp - NPT Equilibration
define      = -DPOSRES
integrator  = md
nsteps      = {{.NSteps}}
dt          = {{.DT}}
nstxout     = 500
nstvout     = 500
nstenergy   = 500
nstlog      = 500
continuation = yes
constraint_algorithm = lincs
constraints = h-bonds
lincs_iter  = 1
lincs_order = 4
cutoff-scheme = Verlet
ns_type     = grid
nstlist     = 10
rcoulomb    = 1.0
rvdw        = 1.0
coulombtype = PME
pme_order   = 4
fourierspacing = 0.16
tcoupl      = V-rescale
tc-grps     = System
tau_t       = 0.1
ref_t       = {{.Temperature}}
pcoupl      = Parrinello-Rahman
pcoupltype  = isotropic
tau_p       = 2.0
ref_p       = {{.Pressure}}
compressibility = 4.5e-5
refcoord_scaling = com
pbc         = xyz
DispCorr    = EnerPres
gen_vel     = no
`,

	"md": `; md.mdp - Production MD
integrator  = md
nsteps      = {{.NSteps}}
dt          = {{.DT}}
nstxout     = 0
nstvout     = 0
nstfout     = 0
nstenergy   = 5000
nstlog      = 5000
nstxout-compressed = 5000
compressed-x-grps  = System
continuation = yes
constraint_algorithm = lincs
constraints = h-bonds
lincs_iter  = 1
lincs_order = 4
cutoff-scheme = Verlet
ns_type     = grid
nstlist     = 10
rcoulomb    = 1.0
rvdw        = 1.0
coulombtype = PME
pme_order   = 4
fourierspacing = 0.16
tcoupl      = V-rescale
tc-grps     = System
tau_t       = 0.1
ref_t       = {{.Temperature}}
pcoupl      = Parrinello-Rahman
pcoupltype  = isotropic
tau_p       = 2.0
ref_p       = {{.Pressure}}
compressibility = 4.5e-5
pbc         = xyz
DispCorr    = EnerPres
gen_vel     = no
`,
}
